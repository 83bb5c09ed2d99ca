package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// WebsocketHub is the host side of the websocket transport. HTTP handlers
// hand upgraded requests to Accept.
type WebsocketHub struct {
	*Hub
	upgrader websocket.Upgrader
}

// NewWebsocketHub creates a hub; checkOrigin may be nil to allow any origin.
func NewWebsocketHub(id string, checkOrigin func(*http.Request) bool, logger zerolog.Logger) *WebsocketHub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WebsocketHub{
		Hub: newHub(id, logger.With().Str("component", "ws").Logger()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Accept upgrades the request and registers the connection as peerID.
// It returns once the connection is registered; the pumps run in the background.
func (h *WebsocketHub) Accept(w http.ResponseWriter, r *http.Request, peerID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	if err := serveWebsocket(h.Hub, conn, peerID); err != nil {
		conn.Close()
		return err
	}
	h.logger.Info().Str("peer", peerID).Str("remote", conn.RemoteAddr().String()).Msg("peer connected")
	return nil
}

// DialWebsocket connects a client to a host endpoint such as ws://host:8080/ws/room.
func DialWebsocket(ctx context.Context, url, id string, logger zerolog.Logger) (*Hub, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	hub := newHub(id, logger.With().Str("component", "ws").Logger())
	if err := serveWebsocket(hub, conn, HostPeerID); err != nil {
		conn.Close()
		return nil, err
	}
	return hub, nil
}

// serveWebsocket attaches conn to hub and starts its read pump and keepalive.
func serveWebsocket(hub *Hub, conn *websocket.Conn, peerID string) error {
	var writeMu sync.Mutex
	stop := make(chan struct{})
	var stopOnce sync.Once

	write := func(data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}
	closeFn := func() error {
		stopOnce.Do(func() { close(stop) })
		writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		writeMu.Unlock()
		return conn.Close()
	}

	if err := hub.attach(peerID, write, closeFn); err != nil {
		return err
	}

	go func() {
		defer hub.detach(peerID)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					hub.logger.Debug().Err(err).Str("peer", peerID).Msg("read failed")
				}
				return
			}
			hub.receive(peerID, data)
		}
	}()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				writeMu.Unlock()
				if err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()
	return nil
}
