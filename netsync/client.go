package netsync

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"pocket-poker/engine"
	"pocket-poker/models"
)

// Client mirrors the host's state for one remote player. The mirrored state is
// read-only; all changes go through SubmitAction.
type Client struct {
	mu        sync.Mutex
	transport Transport
	name      string
	avatarURL string
	token     string

	hostID   string
	peerID   string
	settings models.Settings
	lobby    []models.LobbyPeer
	state    *models.GameState
	inMatch  bool

	onState      func(*models.GameState)
	onLobby      func([]models.LobbyPeer)
	onError      func(string)
	onMatchEnded func(error)
	logger       zerolog.Logger
}

type ClientOption func(*Client)

func WithAvatar(url string) ClientOption {
	return func(c *Client) {
		c.avatarURL = url
	}
}

func WithInviteToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "client").Logger()
	}
}

func OnState(fn func(*models.GameState)) ClientOption {
	return func(c *Client) {
		c.onState = fn
	}
}

func OnLobby(fn func([]models.LobbyPeer)) ClientOption {
	return func(c *Client) {
		c.onLobby = fn
	}
}

// OnServerError receives the text of every ERROR message from the host.
func OnServerError(fn func(string)) ClientOption {
	return func(c *Client) {
		c.onError = fn
	}
}

// OnMatchEnded is called once when the host goes away.
func OnMatchEnded(fn func(error)) ClientOption {
	return func(c *Client) {
		c.onMatchEnded = fn
	}
}

func NewClient(t Transport, name string, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		name:      name,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes host messages until the host disconnects, the transport
// closes, or ctx is done. Losing the host returns ErrHostDisconnected.
func (c *Client) Run(ctx context.Context) error {
	events := c.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return c.hostLost()
			}
			if err := c.handleEvent(ev); err != nil {
				return err
			}
		}
	}
}

func (c *Client) handleEvent(ev TransportEvent) error {
	switch ev.Kind {
	case EventConnected:
		c.mu.Lock()
		c.hostID = ev.PeerID
		c.mu.Unlock()
		return c.send(models.JoinMessage{Name: c.name, AvatarURL: c.avatarURL, Token: c.token})
	case EventDisconnected:
		if ev.PeerID == c.HostID() {
			return c.hostLost()
		}
	case EventMessage:
		if ev.Err != nil {
			c.logger.Warn().Err(ev.Err).Msg("dropping undecodable message from host")
			return nil
		}
		return c.handleMessage(ev.Message)
	}
	return nil
}

func (c *Client) handleMessage(msg models.NetMessage) error {
	switch m := msg.(type) {
	case models.WelcomeMessage:
		c.mu.Lock()
		c.peerID = m.PeerID
		c.settings = m.Config
		c.mu.Unlock()
		c.logger.Info().Str("peer", m.PeerID).Msg("joined lobby")
	case models.LobbyUpdateMessage:
		c.mu.Lock()
		c.lobby = m.Peers
		fn := c.onLobby
		c.mu.Unlock()
		if fn != nil {
			fn(m.Peers)
		}
	case models.LobbySettingsMessage:
		c.mu.Lock()
		c.settings = m.Settings
		c.mu.Unlock()
	case models.GameStartMessage:
		c.mu.Lock()
		c.inMatch = true
		c.state = nil
		c.mu.Unlock()
		c.mirror(m.State)
	case models.StateUpdateMessage:
		c.mirror(m.State)
	case models.ErrorMessage:
		c.logger.Warn().Str("message", m.Message).Msg("host rejected request")
		c.mu.Lock()
		fn := c.onError
		c.mu.Unlock()
		if fn != nil {
			fn(m.Message)
		}
	case models.HostDisconnectMessage:
		return c.hostLost()
	default:
		c.logger.Warn().Str("type", string(msg.Type())).Msg("unexpected message from host")
	}
	return nil
}

// mirror keeps the newest snapshot; the host may deliver updates out of order.
func (c *Client) mirror(state *models.GameState) {
	if state == nil {
		return
	}
	c.mu.Lock()
	if c.state != nil && state.Sequence <= c.state.Sequence {
		c.mu.Unlock()
		return
	}
	c.state = state
	fn := c.onState
	c.mu.Unlock()

	if fn != nil {
		fn(state.Clone())
	}
}

func (c *Client) hostLost() error {
	c.mu.Lock()
	c.state = nil
	c.inMatch = false
	c.lobby = nil
	fn := c.onMatchEnded
	c.onMatchEnded = nil
	c.mu.Unlock()

	c.logger.Info().Msg("host disconnected")
	if fn != nil {
		fn(ErrHostDisconnected)
	}
	return ErrHostDisconnected
}

// SubmitAction asks the host to apply an action for our seat.
func (c *Client) SubmitAction(action models.ActionType, amount int) error {
	c.mu.Lock()
	inMatch := c.inMatch
	c.mu.Unlock()
	if !inMatch {
		return ErrNoMatch
	}
	return c.send(models.ActionMessage{Action: action, Amount: amount})
}

// Leave tells the host we are going and closes the link.
func (c *Client) Leave() error {
	if err := c.send(models.LeaveMessage{}); err != nil {
		c.logger.Debug().Err(err).Msg("leave not delivered")
	}
	return c.transport.Close()
}

func (c *Client) send(msg models.NetMessage) error {
	hostID := c.HostID()
	if hostID == "" {
		return ErrHostDisconnected
	}
	return c.transport.Send(hostID, msg)
}

func (c *Client) HostID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hostID
}

// PeerID is the id the host assigned us; it is also our seat id.
func (c *Client) PeerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerID
}

func (c *Client) Settings() models.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *Client) Lobby() []models.LobbyPeer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.LobbyPeer(nil), c.lobby...)
}

func (c *Client) InMatch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inMatch
}

// State returns a copy of the mirrored state, or nil outside a match.
func (c *Client) State() *models.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return nil
	}
	return c.state.Clone()
}

// LegalActions lists what our seat may do in the mirrored state.
func (c *Client) LegalActions() []models.ActionType {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil || c.state.CurrentSeatID != c.peerID || !c.state.Phase.IsBetting() {
		return nil
	}
	seat := c.state.SeatByID(c.peerID)
	if seat == nil {
		return nil
	}
	return engine.LegalActionsFor(c.state, seat)
}
