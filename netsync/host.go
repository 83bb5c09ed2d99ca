package netsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/weedbox/timebank"

	"pocket-poker/bot"
	"pocket-poker/engine"
	"pocket-poker/models"
)

// BotSpec describes one computer seat added when the match starts.
type BotSpec struct {
	Style      models.PlayStyle
	Difficulty models.Difficulty
	UseAI      bool
}

type HostConfig struct {
	Name         string
	AvatarURL    string
	Settings     models.Settings
	Bots         []BotSpec
	AutoNextHand time.Duration
	RateLimit    RateLimiterConfig
	// Dedicated hosts only referee: the host is listed in the lobby but never seated.
	Dedicated bool
}

// Host owns the authoritative engine. Inbound messages are handled one at a
// time, in arrival order, by Run.
type Host struct {
	mu        sync.Mutex
	cfg       HostConfig
	transport Transport
	roster    *roster
	engine    *engine.GameEngine
	runner    *bot.Runner
	limiter   *RateLimiter
	invites   *InviteService
	nextHand  *timebank.TimeBank
	scheduled int
	closed    bool

	engineOpts []engine.Option
	runnerOpts []bot.RunnerOption
	heuristic  bot.Policy
	observers  []engine.StateListener
	localView  func(*models.GameState)
	logger     zerolog.Logger
}

type HostOption func(*Host)

func WithHostLogger(logger zerolog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger.With().Str("component", "host").Logger()
	}
}

// WithInvites makes JOIN require a token issued by s.
func WithInvites(s *InviteService) HostOption {
	return func(h *Host) {
		h.invites = s
	}
}

func WithEngineOptions(opts ...engine.Option) HostOption {
	return func(h *Host) {
		h.engineOpts = append(h.engineOpts, opts...)
	}
}

func WithRunnerOptions(opts ...bot.RunnerOption) HostOption {
	return func(h *Host) {
		h.runnerOpts = append(h.runnerOpts, opts...)
	}
}

func WithHeuristicPolicy(p bot.Policy) HostOption {
	return func(h *Host) {
		h.heuristic = p
	}
}

// WithStateObserver registers fn on the engine once the match starts.
// fn receives unsanitized snapshots.
func WithStateObserver(fn engine.StateListener) HostOption {
	return func(h *Host) {
		h.observers = append(h.observers, fn)
	}
}

// WithLocalView delivers the host player's own sanitized view.
func WithLocalView(fn func(*models.GameState)) HostOption {
	return func(h *Host) {
		h.localView = fn
	}
}

func NewHost(t Transport, cfg HostConfig, opts ...HostOption) *Host {
	if cfg.Name == "" {
		cfg.Name = "Host"
	}
	if cfg.Settings.MaxSeats <= 0 {
		cfg.Settings.MaxSeats = models.DefaultSettings().MaxSeats
	}
	// a negative rate disables limiting
	if cfg.RateLimit.MessagesPerSecond == 0 {
		cfg.RateLimit = DefaultRateLimiterConfig
	}

	h := &Host{
		cfg:       cfg,
		transport: t,
		roster:    newRoster(models.LobbyPeer{ID: t.ID(), Name: cfg.Name, AvatarURL: cfg.AvatarURL}),
		nextHand:  timebank.NewTimeBank(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.heuristic == nil {
		h.heuristic = bot.NewHeuristicPolicy(nil)
	}
	h.limiter = NewRateLimiter(cfg.RateLimit, h.logger)
	return h
}

// ID is the host's own seat id.
func (h *Host) ID() string {
	return h.transport.ID()
}

// Run handles transport events until ctx is done or the transport closes.
func (h *Host) Run(ctx context.Context) error {
	events := h.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return ErrTransportClosed
			}
			h.handleEvent(ev)
		}
	}
}

func (h *Host) handleEvent(ev TransportEvent) {
	switch ev.Kind {
	case EventConnected:
		h.logger.Debug().Str("peer", ev.PeerID).Msg("peer connected")
	case EventDisconnected:
		h.logger.Info().Str("peer", ev.PeerID).Msg("peer disconnected")
		h.removePeer(ev.PeerID)
	case EventMessage:
		if !h.limiter.Allow(ev.PeerID) {
			h.sendError(ev.PeerID, ErrRateLimited)
			return
		}
		if ev.Err != nil {
			h.logger.Warn().Err(ev.Err).Str("peer", ev.PeerID).Msg("dropping undecodable message")
			h.sendError(ev.PeerID, fmt.Errorf("%w: %v", ErrProtocol, ev.Err))
			return
		}
		h.handleMessage(ev.PeerID, ev.Message)
	}
}

func (h *Host) handleMessage(peerID string, msg models.NetMessage) {
	switch m := msg.(type) {
	case models.JoinMessage:
		h.handleJoin(peerID, m)
	case models.ActionMessage:
		h.handleAction(peerID, m)
	case models.LeaveMessage:
		h.removePeer(peerID)
	default:
		h.sendError(peerID, fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Type()))
	}
}

func (h *Host) handleJoin(peerID string, m models.JoinMessage) {
	h.mu.Lock()
	err := h.admitLocked(peerID, m)
	if err != nil {
		h.mu.Unlock()
		h.logger.Info().Err(err).Str("peer", peerID).Msg("join refused")
		h.sendError(peerID, err)
		return
	}
	peers := h.roster.list()
	settings := h.cfg.Settings
	h.mu.Unlock()

	h.logger.Info().Str("peer", peerID).Str("name", m.Name).Msg("peer joined")
	h.send(peerID, models.WelcomeMessage{Config: settings, PeerID: peerID})
	h.broadcastLobby(peers, models.LobbyUpdateMessage{Peers: peers})
	h.broadcastLobby(peers, models.LobbySettingsMessage{Settings: settings})
}

func (h *Host) admitLocked(peerID string, m models.JoinMessage) error {
	if h.invites != nil {
		if err := h.invites.Validate(m.Token); err != nil {
			return err
		}
	}
	if h.engine != nil {
		return ErrMatchInProgress
	}
	if h.roster.has(peerID) {
		return ErrAlreadyJoined
	}
	if h.seatsTakenLocked() >= h.cfg.Settings.MaxSeats {
		return ErrLobbyFull
	}

	name := m.Name
	if name == "" {
		name = "Player " + peerID[:min(4, len(peerID))]
	}
	h.roster.add(models.LobbyPeer{ID: peerID, Name: name, AvatarURL: m.AvatarURL})
	return nil
}

func (h *Host) seatsTakenLocked() int {
	taken := h.roster.len() + len(h.cfg.Bots)
	if h.cfg.Dedicated {
		taken--
	}
	return taken
}

func (h *Host) handleAction(peerID string, m models.ActionMessage) {
	h.mu.Lock()
	eng := h.engine
	joined := h.roster.has(peerID)
	h.mu.Unlock()

	switch {
	case !joined:
		h.sendError(peerID, ErrNotJoined)
		return
	case eng == nil:
		h.sendError(peerID, ErrNoMatch)
		return
	}

	// seat ids of remote players are their peer ids, so a peer can only move its own seat
	if err := eng.ApplyAction(peerID, m.Action, m.Amount); err != nil {
		h.logger.Debug().Err(err).Str("peer", peerID).Str("action", string(m.Action)).Msg("action rejected")
		h.sendError(peerID, err)
	}
}

func (h *Host) removePeer(peerID string) {
	h.mu.Lock()
	removed := h.roster.remove(peerID)
	eng := h.engine
	peers := h.roster.list()
	h.mu.Unlock()
	h.limiter.Forget(peerID)

	if !removed {
		return
	}
	if eng != nil {
		if err := eng.MarkLeft(peerID); err != nil && !errors.Is(err, engine.ErrSeatNotFound) {
			h.logger.Warn().Err(err).Str("peer", peerID).Msg("failed to release seat")
		}
		return
	}
	h.broadcastLobby(peers, models.LobbyUpdateMessage{Peers: peers})
}

// UpdateSettings changes the match configuration while still in the lobby.
func (h *Host) UpdateSettings(settings models.Settings) error {
	h.mu.Lock()
	if h.engine != nil {
		h.mu.Unlock()
		return ErrMatchInProgress
	}
	if settings.MaxSeats <= 0 {
		settings.MaxSeats = h.cfg.Settings.MaxSeats
	}
	h.cfg.Settings = settings
	peers := h.roster.list()
	h.mu.Unlock()

	h.broadcastLobby(peers, models.LobbySettingsMessage{Settings: settings})
	return nil
}

func (h *Host) Settings() models.Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg.Settings
}

func (h *Host) Roster() []models.LobbyPeer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.roster.list()
}

// StartMatch seats the lobby and the configured bots, sends GAME_START and
// deals the first hand.
func (h *Host) StartMatch() error {
	h.mu.Lock()
	if h.engine != nil {
		h.mu.Unlock()
		return ErrMatchInProgress
	}

	var seats []*models.Seat
	if !h.cfg.Dedicated {
		seats = append(seats, engine.NewHumanSeat(h.ID(), h.cfg.Name, h.cfg.AvatarURL, false))
	}
	for _, p := range h.roster.remote() {
		seats = append(seats, engine.NewHumanSeat(p.ID, p.Name, p.AvatarURL, true))
	}
	for i, b := range h.cfg.Bots {
		difficulty := b.Difficulty
		if difficulty == "" {
			difficulty = h.cfg.Settings.BotDifficulty
		}
		seats = append(seats, engine.NewBotSeat(i, b.Style, difficulty, b.UseAI))
	}

	eng, err := engine.NewGameEngine(h.cfg.Settings, seats, h.engineOpts...)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.engine = eng
	h.runner = bot.NewRunner(h.heuristic, eng.ApplyAction, h.runnerOpts...)
	eng.OnStateChanged(h.runner.OnStateChanged)
	for _, fn := range h.observers {
		eng.OnStateChanged(fn)
	}
	eng.OnStateChanged(h.onState)
	peers := h.roster.remote()
	h.mu.Unlock()

	for _, p := range peers {
		h.send(p.ID, models.GameStartMessage{State: eng.GetState(p.ID)})
	}
	h.logger.Info().Int("seats", len(seats)).Msg("match started")
	return eng.StartHand()
}

// NextHand deals the next hand of a running match.
func (h *Host) NextHand() error {
	h.mu.Lock()
	eng := h.engine
	h.mu.Unlock()
	if eng == nil {
		return ErrNoMatch
	}
	return eng.StartHand()
}

// SubmitAction plays the host's own seat.
func (h *Host) SubmitAction(action models.ActionType, amount int) error {
	h.mu.Lock()
	eng := h.engine
	dedicated := h.cfg.Dedicated
	h.mu.Unlock()
	if dedicated {
		return ErrNotJoined
	}
	if eng == nil {
		return ErrNoMatch
	}
	return eng.ApplyAction(h.ID(), action, amount)
}

// Engine returns the running engine, or nil while in the lobby.
func (h *Host) Engine() *engine.GameEngine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine
}

// onState fans a snapshot out as per-recipient STATE_UPDATEs.
func (h *Host) onState(snap *models.GameState) {
	h.mu.Lock()
	peers := h.roster.remote()
	localView := h.localView
	h.maybeScheduleNextHandLocked(snap)
	h.mu.Unlock()

	for _, p := range peers {
		h.send(p.ID, models.StateUpdateMessage{State: engine.Sanitize(snap, p.ID)})
	}
	if localView != nil {
		localView(engine.Sanitize(snap, h.ID()))
	}
}

func (h *Host) maybeScheduleNextHandLocked(snap *models.GameState) {
	if h.cfg.AutoNextHand <= 0 || h.closed || snap.Phase != models.PhaseShowdown {
		return
	}
	if snap.HandNumber <= h.scheduled {
		return
	}
	h.scheduled = snap.HandNumber

	err := h.nextHand.NewTask(h.cfg.AutoNextHand, func(isCancelled bool) {
		if isCancelled {
			return
		}
		go func() {
			if err := h.NextHand(); err != nil {
				h.logger.Info().Err(err).Msg("match over")
			}
		}()
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to schedule next hand")
	}
}

func (h *Host) send(peerID string, msg models.NetMessage) {
	if err := h.transport.Send(peerID, msg); err != nil {
		h.logger.Debug().Err(err).Str("peer", peerID).Str("type", string(msg.Type())).Msg("send failed")
	}
}

func (h *Host) sendError(peerID string, err error) {
	h.send(peerID, models.ErrorMessage{Message: err.Error()})
}

func (h *Host) broadcastLobby(peers []models.LobbyPeer, msg models.NetMessage) {
	for _, p := range peers {
		if !p.IsHost {
			h.send(p.ID, msg)
		}
	}
}

// Close tells every peer the host is gone and releases the match.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	eng, runner := h.engine, h.runner
	h.mu.Unlock()

	h.nextHand.Cancel()
	if runner != nil {
		runner.Close()
	}
	if eng != nil {
		eng.Close()
	}
	h.limiter.Stop()

	if err := h.transport.Broadcast(models.HostDisconnectMessage{}); err != nil {
		h.logger.Debug().Err(err).Msg("host disconnect broadcast failed")
	}
	return h.transport.Close()
}
