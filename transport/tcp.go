package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TCPHub is the host side of the line-delimited JSON transport: one
// envelope per line, one link per accepted connection.
type TCPHub struct {
	*Hub
	listener net.Listener
}

func ListenTCP(address, id string, logger zerolog.Logger) (*TCPHub, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to start tcp listener: %w", err)
	}

	t := &TCPHub{
		Hub:      newHub(id, logger.With().Str("component", "tcp").Logger()),
		listener: listener,
	}
	t.onStop = append(t.onStop, listener.Close)
	t.logger.Info().Str("address", listener.Addr().String()).Msg("tcp transport listening")

	go t.acceptLoop()
	return t, nil
}

func (t *TCPHub) Addr() net.Addr {
	return t.listener.Addr()
}

func (t *TCPHub) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.Warn().Err(err).Msg("error accepting connection")
			continue
		}

		peerID := uuid.NewString()
		t.logger.Info().Str("peer", peerID).Str("remote", conn.RemoteAddr().String()).Msg("peer connected")
		if err := serveTCP(t.Hub, conn, peerID); err != nil {
			t.logger.Warn().Err(err).Msg("dropping connection")
			conn.Close()
		}
	}
}

// DialTCP connects a client to a TCPHub.
func DialTCP(ctx context.Context, address, id string, logger zerolog.Logger) (*Hub, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	hub := newHub(id, logger.With().Str("component", "tcp").Logger())
	if err := serveTCP(hub, conn, HostPeerID); err != nil {
		conn.Close()
		return nil, err
	}
	return hub, nil
}

func serveTCP(hub *Hub, conn net.Conn, peerID string) error {
	var writeMu sync.Mutex
	write := func(data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err := conn.Write(append(data, '\n'))
		return err
	}

	if err := hub.attach(peerID, write, conn.Close); err != nil {
		return err
	}

	go func() {
		defer hub.detach(peerID)

		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 64*1024), maxMessageSize)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			hub.receive(peerID, line)
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
			hub.logger.Debug().Err(err).Str("peer", peerID).Msg("scanner error")
		}
	}()
	return nil
}
