package netsync

import "pocket-poker/models"

type EventKind int

const (
	EventConnected EventKind = iota
	EventMessage
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventMessage:
		return "message"
	case EventDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// TransportEvent is one thing that happened on a link. For EventMessage,
// Err is set instead of Message when the frame could not be decoded.
type TransportEvent struct {
	Kind    EventKind
	PeerID  string
	Message models.NetMessage
	Err     error
}

// Transport moves NetMessages between this endpoint and its peers.
// A host endpoint has one link per peer; a client endpoint has one link to the host.
type Transport interface {
	ID() string
	Send(peerID string, msg models.NetMessage) error
	Broadcast(msg models.NetMessage) error
	Events() <-chan TransportEvent
	Close() error
}
