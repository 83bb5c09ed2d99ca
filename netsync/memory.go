package netsync

import (
	"fmt"
	"sync"

	"pocket-poker/models"
)

// MemoryNetwork connects MemoryTransports inside one process. Messages still
// go through the wire codec so nothing is shared between endpoints.
type MemoryNetwork struct {
	mu        sync.Mutex
	endpoints map[string]*MemoryTransport
}

func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{endpoints: make(map[string]*MemoryTransport)}
}

// Listen registers a host endpoint under id.
func (n *MemoryNetwork) Listen(id string) (*MemoryTransport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.endpoints[id]; exists {
		return nil, fmt.Errorf("memory endpoint %q already registered", id)
	}
	t := newMemoryTransport(id, n)
	n.endpoints[id] = t
	return t, nil
}

// Dial connects a new peer endpoint to the host listening on hostID.
// Both sides observe EventConnected.
func (n *MemoryNetwork) Dial(hostID, peerID string) (*MemoryTransport, error) {
	n.mu.Lock()
	host, ok := n.endpoints[hostID]
	if !ok {
		n.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, hostID)
	}
	if _, exists := n.endpoints[peerID]; exists {
		n.mu.Unlock()
		return nil, fmt.Errorf("memory endpoint %q already registered", peerID)
	}
	peer := newMemoryTransport(peerID, n)
	n.endpoints[peerID] = peer
	n.mu.Unlock()

	if !host.link(peer) {
		return nil, ErrTransportClosed
	}
	peer.link(host)
	return peer, nil
}

// Sever drops the link between a and b as if the connection was lost.
func (n *MemoryNetwork) Sever(a, b string) {
	n.mu.Lock()
	ta, tb := n.endpoints[a], n.endpoints[b]
	n.mu.Unlock()
	if ta == nil || tb == nil {
		return
	}
	ta.unlink(b)
	tb.unlink(a)
}

func (n *MemoryNetwork) forget(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.endpoints, id)
}

type MemoryTransport struct {
	id      string
	network *MemoryNetwork

	mu     sync.Mutex
	cond   *sync.Cond
	links  map[string]*MemoryTransport
	queue  []TransportEvent
	closed bool
	done   chan struct{}
	events chan TransportEvent
}

func newMemoryTransport(id string, network *MemoryNetwork) *MemoryTransport {
	t := &MemoryTransport{
		id:      id,
		network: network,
		links:   make(map[string]*MemoryTransport),
		done:    make(chan struct{}),
		events:  make(chan TransportEvent),
	}
	t.cond = sync.NewCond(&t.mu)
	go t.pump()
	return t
}

func (t *MemoryTransport) ID() string {
	return t.id
}

func (t *MemoryTransport) Events() <-chan TransportEvent {
	return t.events
}

func (t *MemoryTransport) Send(peerID string, msg models.NetMessage) error {
	t.mu.Lock()
	dst, ok := t.links[peerID]
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrTransportClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peerID)
	}
	return t.deliver(dst, msg)
}

func (t *MemoryTransport) Broadcast(msg models.NetMessage) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	targets := make([]*MemoryTransport, 0, len(t.links))
	for _, dst := range t.links {
		targets = append(targets, dst)
	}
	t.mu.Unlock()

	for _, dst := range targets {
		if err := t.deliver(dst, msg); err != nil {
			return err
		}
	}
	return nil
}

func (t *MemoryTransport) deliver(dst *MemoryTransport, msg models.NetMessage) error {
	data, err := models.EncodeMessage(msg)
	if err != nil {
		return err
	}
	decoded, err := models.DecodeMessage(data)
	dst.push(TransportEvent{Kind: EventMessage, PeerID: t.id, Message: decoded, Err: err})
	return nil
}

// Close disconnects every link and ends the event stream.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	links := t.links
	t.links = make(map[string]*MemoryTransport)
	close(t.done)
	t.cond.Broadcast()
	t.mu.Unlock()

	for _, peer := range links {
		peer.unlink(t.id)
	}
	t.network.forget(t.id)
	return nil
}

func (t *MemoryTransport) link(peer *MemoryTransport) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	t.links[peer.id] = peer
	t.mu.Unlock()
	t.push(TransportEvent{Kind: EventConnected, PeerID: peer.id})
	return true
}

func (t *MemoryTransport) unlink(peerID string) {
	t.mu.Lock()
	_, ok := t.links[peerID]
	delete(t.links, peerID)
	t.mu.Unlock()
	if ok {
		t.push(TransportEvent{Kind: EventDisconnected, PeerID: peerID})
	}
}

func (t *MemoryTransport) push(ev TransportEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.queue = append(t.queue, ev)
	t.cond.Signal()
}

// pump feeds queued events to the channel in order so senders never block.
func (t *MemoryTransport) pump() {
	defer close(t.events)
	for {
		t.mu.Lock()
		for len(t.queue) == 0 && !t.closed {
			t.cond.Wait()
		}
		if t.closed {
			t.mu.Unlock()
			return
		}
		ev := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()

		select {
		case t.events <- ev:
		case <-t.done:
			return
		}
	}
}
