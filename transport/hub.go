package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"pocket-poker/models"
	"pocket-poker/netsync"
)

// HostPeerID names the single link a dialing client has: the host.
const HostPeerID = "host"

const sendBuffer = 256

var ErrSendBufferFull = errors.New("send buffer full")

// link is one connected peer. Frames queued on send are written by its write pump.
type link struct {
	id    string
	send  chan []byte
	write func([]byte) error
	close func() error
	once  sync.Once
}

// shutdown stops accepting frames. The write pump flushes what is queued
// and then closes the connection.
func (l *link) shutdown() {
	l.once.Do(func() { close(l.send) })
}

func (l *link) release() {
	if l.close != nil {
		_ = l.close()
	}
}

// Hub implements netsync.Transport over any number of framed links. Each
// concrete transport owns the read side and feeds frames through receive.
type Hub struct {
	id     string
	mu     sync.RWMutex
	links  map[string]*link
	events chan netsync.TransportEvent
	emitMu sync.RWMutex
	done   chan struct{}
	closed bool
	onStop []func() error
	logger zerolog.Logger
}

func newHub(id string, logger zerolog.Logger) *Hub {
	return &Hub{
		id:     id,
		links:  make(map[string]*link),
		events: make(chan netsync.TransportEvent, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (h *Hub) ID() string {
	return h.id
}

func (h *Hub) Events() <-chan netsync.TransportEvent {
	return h.events
}

// Peers lists the ids of the live links.
func (h *Hub) Peers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.links))
	for id := range h.links {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) Send(peerID string, msg models.NetMessage) error {
	data, err := models.EncodeMessage(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return netsync.ErrTransportClosed
	}
	l, ok := h.links[peerID]
	if !ok {
		return fmt.Errorf("%w: %s", netsync.ErrUnknownPeer, peerID)
	}
	return h.enqueue(l, data)
}

func (h *Hub) Broadcast(msg models.NetMessage) error {
	data, err := models.EncodeMessage(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return netsync.ErrTransportClosed
	}
	var firstErr error
	for _, l := range h.links {
		if err := h.enqueue(l, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// enqueue never blocks. Caller holds at least the read lock.
func (h *Hub) enqueue(l *link, data []byte) error {
	select {
	case l.send <- data:
		return nil
	default:
		h.logger.Warn().Str("peer", l.id).Msg("send buffer full, dropping frame")
		return fmt.Errorf("%w: %s", ErrSendBufferFull, l.id)
	}
}

// attach registers a link and starts its write pump.
func (h *Hub) attach(peerID string, write func([]byte) error, closeFn func() error) error {
	l := &link{id: peerID, send: make(chan []byte, sendBuffer), write: write, close: closeFn}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return netsync.ErrTransportClosed
	}
	if _, exists := h.links[peerID]; exists {
		h.mu.Unlock()
		return fmt.Errorf("peer %q already connected", peerID)
	}
	h.links[peerID] = l
	h.mu.Unlock()

	go h.writePump(l)
	h.emit(netsync.TransportEvent{Kind: netsync.EventConnected, PeerID: peerID})
	return nil
}

func (h *Hub) writePump(l *link) {
	defer l.release()
	for data := range l.send {
		if err := l.write(data); err != nil {
			h.logger.Debug().Err(err).Str("peer", l.id).Msg("write failed")
			go h.detach(l.id)
			return
		}
	}
}

// receive decodes one frame from peerID and emits it.
func (h *Hub) receive(peerID string, data []byte) {
	msg, err := models.DecodeMessage(data)
	h.emit(netsync.TransportEvent{Kind: netsync.EventMessage, PeerID: peerID, Message: msg, Err: err})
}

// detach drops the link; the disconnect is emitted once.
func (h *Hub) detach(peerID string) {
	h.mu.Lock()
	l, ok := h.links[peerID]
	delete(h.links, peerID)
	h.mu.Unlock()
	if !ok {
		return
	}
	l.shutdown()
	h.emit(netsync.TransportEvent{Kind: netsync.EventDisconnected, PeerID: peerID})
}

func (h *Hub) emit(ev netsync.TransportEvent) {
	h.emitMu.RLock()
	defer h.emitMu.RUnlock()
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	links := h.links
	h.links = make(map[string]*link)
	stops := h.onStop
	h.mu.Unlock()

	close(h.done)
	h.emitMu.Lock()
	close(h.events)
	h.emitMu.Unlock()

	for _, l := range links {
		l.shutdown()
	}
	var firstErr error
	for _, stop := range stops {
		if err := stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
