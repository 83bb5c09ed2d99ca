package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// ControlServer accepts line-delimited JSON commands for operators and
// pushes room events to every connected control client.
type ControlServer struct {
	address  string
	listener net.Listener
	handler  *CommandHandler
	rooms    *RoomManager
	conns    map[net.Conn]*sync.Mutex
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	logger   zerolog.Logger
}

func NewControlServer(address string, rooms *RoomManager, logger zerolog.Logger) *ControlServer {
	return &ControlServer{
		address:  address,
		handler:  NewCommandHandler(rooms),
		rooms:    rooms,
		conns:    make(map[net.Conn]*sync.Mutex),
		stopChan: make(chan struct{}),
		logger:   logger.With().Str("component", "control").Logger(),
	}
}

// Listen binds the control port. Serve must be called to accept clients.
func (s *ControlServer) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}
	s.listener = listener
	s.logger.Info().Str("address", listener.Addr().String()).Msg("control server listening")
	return nil
}

func (s *ControlServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts control clients until Stop is called.
func (s *ControlServer) Serve() error {
	go s.eventBroadcaster()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn().Err(err).Msg("error accepting connection")
			continue
		}

		s.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("control client connected")
		s.mu.Lock()
		s.conns[conn] = &sync.Mutex{}
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

func (s *ControlServer) handleConnection(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("control client disconnected")
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			s.send(conn, Response{Success: false, Error: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}

		s.logger.Debug().Str("command", cmd.Command).Msg("control command")
		s.send(conn, s.handler.Handle(cmd))
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug().Err(err).Msg("scanner error")
	}
}

func (s *ControlServer) send(conn net.Conn, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("error marshaling control frame")
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	writeMu, ok := s.conns[conn]
	s.mu.Unlock()
	if !ok {
		return
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug().Err(err).Msg("error writing control frame")
	}
}

func (s *ControlServer) eventBroadcaster() {
	events := s.rooms.Events()
	for {
		select {
		case <-s.stopChan:
			return
		case event := <-events:
			s.mu.Lock()
			conns := make([]net.Conn, 0, len(s.conns))
			for conn := range s.conns {
				conns = append(conns, conn)
			}
			s.mu.Unlock()
			for _, conn := range conns {
				s.send(conn, event)
			}
		}
	}
}

func (s *ControlServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
	})
}
