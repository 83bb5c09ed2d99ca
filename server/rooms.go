package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pocket-poker/history"
	"pocket-poker/models"
	"pocket-poker/netsync"
	"pocket-poker/transport"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room already exists")
	ErrHistoryDisabled  = errors.New("hand history is disabled")
	ErrInvitesDisabled  = errors.New("room is not invite only")
	ErrInvalidRoomInput = errors.New("invalid room request")
)

const eventBuffer = 100

// Event is pushed to control clients when something happens in a room.
type Event struct {
	Event  string      `json:"event"`
	RoomID string      `json:"roomId"`
	Data   interface{} `json:"data,omitempty"`
}

type BotRequest struct {
	Style      models.PlayStyle  `json:"style"`
	Difficulty models.Difficulty `json:"difficulty,omitempty"`
	UseAI      bool              `json:"useAI,omitempty"`
}

type CreateRoomRequest struct {
	RoomID         string           `json:"roomId,omitempty"`
	HostName       string           `json:"hostName"`
	Settings       *models.Settings `json:"settings,omitempty"`
	Bots           []BotRequest     `json:"bots,omitempty"`
	AutoNextHandMs int              `json:"autoNextHandMs,omitempty"`
	InviteOnly     bool             `json:"inviteOnly,omitempty"`
}

type RoomInfo struct {
	ID         string             `json:"id"`
	HostName   string             `json:"hostName"`
	Peers      []models.LobbyPeer `json:"peers"`
	Bots       int                `json:"bots"`
	InMatch    bool               `json:"inMatch"`
	HandNumber int                `json:"handNumber,omitempty"`
	Phase      models.Phase       `json:"phase,omitempty"`
	Settings   models.Settings    `json:"settings"`
	InviteOnly bool               `json:"inviteOnly"`
	CreatedAt  time.Time          `json:"createdAt"`
}

type HandCompleteEvent struct {
	HandNumber int            `json:"handNumber"`
	Winners    []string       `json:"winners"`
	Payouts    map[string]int `json:"payouts"`
}

// ManagerConfig is shared by every room the manager creates.
type ManagerConfig struct {
	CheckOrigin  func(*http.Request) bool
	Store        *history.Store
	InviteSecret string
	InviteTTL    time.Duration
	HostOptions  []netsync.HostOption
}

// room is one dedicated host with its websocket hub.
type room struct {
	id         string
	hostName   string
	bots       int
	inviteOnly bool
	createdAt  time.Time
	hub        *transport.WebsocketHub
	host       *netsync.Host
	invites    *netsync.InviteService
	cancel     context.CancelFunc

	mu            sync.Mutex
	completedHand int
}

// RoomManager runs the rooms hosted by this server.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	cfg    ManagerConfig
	events chan Event
	logger zerolog.Logger
}

func NewRoomManager(cfg ManagerConfig, logger zerolog.Logger) *RoomManager {
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = 2 * time.Hour
	}
	return &RoomManager{
		rooms:  make(map[string]*room),
		cfg:    cfg,
		events: make(chan Event, eventBuffer),
		logger: logger.With().Str("component", "rooms").Logger(),
	}
}

func (rm *RoomManager) CreateRoom(req CreateRoomRequest) (RoomInfo, error) {
	settings := models.DefaultSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	seats := settings.MaxSeats
	if seats <= 0 {
		seats = models.DefaultSettings().MaxSeats
	}
	if len(req.Bots) >= seats {
		return RoomInfo{}, fmt.Errorf("%w: %d bots leave no seat for players", ErrInvalidRoomInput, len(req.Bots))
	}
	if req.InviteOnly && rm.cfg.InviteSecret == "" {
		return RoomInfo{}, fmt.Errorf("%w: invite secret not configured", ErrInvalidRoomInput)
	}
	if req.RoomID == "" {
		req.RoomID = uuid.NewString()[:8]
	}
	if req.HostName == "" {
		req.HostName = "Dealer"
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, exists := rm.rooms[req.RoomID]; exists {
		return RoomInfo{}, ErrRoomExists
	}

	r := &room{
		id:         req.RoomID,
		hostName:   req.HostName,
		bots:       len(req.Bots),
		inviteOnly: req.InviteOnly,
		createdAt:  time.Now().UTC(),
		hub:        transport.NewWebsocketHub("host-"+req.RoomID, rm.cfg.CheckOrigin, rm.logger),
	}

	bots := make([]netsync.BotSpec, 0, len(req.Bots))
	for _, b := range req.Bots {
		bots = append(bots, netsync.BotSpec{Style: b.Style, Difficulty: b.Difficulty, UseAI: b.UseAI})
	}

	opts := append([]netsync.HostOption{
		netsync.WithHostLogger(rm.logger.With().Str("room", r.id).Logger()),
		netsync.WithStateObserver(func(st *models.GameState) { rm.observe(r, st) }),
	}, rm.cfg.HostOptions...)
	if rm.cfg.Store != nil {
		opts = append(opts, netsync.WithStateObserver(history.NewRecorder(rm.cfg.Store, r.id).Observe))
	}
	if req.InviteOnly {
		r.invites = netsync.NewInviteService(rm.cfg.InviteSecret, r.id)
		opts = append(opts, netsync.WithInvites(r.invites))
	}

	r.host = netsync.NewHost(r.hub, netsync.HostConfig{
		Name:         req.HostName,
		Settings:     settings,
		Bots:         bots,
		AutoNextHand: time.Duration(req.AutoNextHandMs) * time.Millisecond,
		Dedicated:    true,
	}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() {
		if err := r.host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			rm.logger.Debug().Err(err).Str("room", r.id).Msg("room loop stopped")
		}
	}()

	rm.rooms[r.id] = r
	rm.logger.Info().Str("room", r.id).Int("bots", r.bots).Bool("inviteOnly", r.inviteOnly).Msg("room created")
	rm.emit(Event{Event: "room.created", RoomID: r.id})
	return r.info(), nil
}

func (rm *RoomManager) DestroyRoom(id string) error {
	rm.mu.Lock()
	r, exists := rm.rooms[id]
	delete(rm.rooms, id)
	rm.mu.Unlock()
	if !exists {
		return ErrRoomNotFound
	}

	r.cancel()
	err := r.host.Close()
	rm.logger.Info().Str("room", id).Msg("room closed")
	rm.emit(Event{Event: "room.closed", RoomID: id})
	return err
}

func (rm *RoomManager) GetRoom(id string) (RoomInfo, error) {
	r, err := rm.room(id)
	if err != nil {
		return RoomInfo{}, err
	}
	return r.info(), nil
}

// ListRooms returns every room, oldest first.
func (rm *RoomManager) ListRooms() []RoomInfo {
	rm.mu.RLock()
	rooms := make([]*room, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		rooms = append(rooms, r)
	}
	rm.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].createdAt.Before(rooms[j].createdAt) })
	infos := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.info())
	}
	return infos
}

func (rm *RoomManager) StartMatch(id string) error {
	r, err := rm.room(id)
	if err != nil {
		return err
	}
	if err := r.host.StartMatch(); err != nil {
		return err
	}
	rm.emit(Event{Event: "match.started", RoomID: id})
	return nil
}

func (rm *RoomManager) NextHand(id string) error {
	r, err := rm.room(id)
	if err != nil {
		return err
	}
	return r.host.NextHand()
}

func (rm *RoomManager) UpdateSettings(id string, settings models.Settings) error {
	r, err := rm.room(id)
	if err != nil {
		return err
	}
	return r.host.UpdateSettings(settings)
}

// Invite issues a join token for an invite-only room.
func (rm *RoomManager) Invite(id string) (string, error) {
	r, err := rm.room(id)
	if err != nil {
		return "", err
	}
	if r.invites == nil {
		return "", ErrInvitesDisabled
	}
	return r.invites.Issue(rm.cfg.InviteTTL)
}

// Accept upgrades a websocket request into the room. Each connection gets a
// fresh peer id, which becomes its seat id.
func (rm *RoomManager) Accept(id string, w http.ResponseWriter, req *http.Request) error {
	r, err := rm.room(id)
	if err != nil {
		return err
	}
	return r.hub.Accept(w, req, uuid.NewString())
}

func (rm *RoomManager) History(id string, limit int) ([]history.HandRecord, error) {
	if rm.cfg.Store == nil {
		return nil, ErrHistoryDisabled
	}
	return rm.cfg.Store.Hands(id, limit)
}

func (rm *RoomManager) Hand(handID int64) (*history.HandRecord, error) {
	if rm.cfg.Store == nil {
		return nil, ErrHistoryDisabled
	}
	return rm.cfg.Store.Hand(handID)
}

// Events streams room events. Events are dropped when nobody reads them.
func (rm *RoomManager) Events() <-chan Event {
	return rm.events
}

// Close shuts every room down.
func (rm *RoomManager) Close() {
	rm.mu.RLock()
	ids := make([]string, 0, len(rm.rooms))
	for id := range rm.rooms {
		ids = append(ids, id)
	}
	rm.mu.RUnlock()

	for _, id := range ids {
		_ = rm.DestroyRoom(id)
	}
}

func (rm *RoomManager) room(id string) (*room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, exists := rm.rooms[id]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (rm *RoomManager) observe(r *room, st *models.GameState) {
	if st.Phase != models.PhaseShowdown || len(st.Winners) == 0 {
		return
	}
	r.mu.Lock()
	if st.HandNumber <= r.completedHand {
		r.mu.Unlock()
		return
	}
	r.completedHand = st.HandNumber
	r.mu.Unlock()

	rm.emit(Event{Event: "hand.complete", RoomID: r.id, Data: HandCompleteEvent{
		HandNumber: st.HandNumber,
		Winners:    st.Winners,
		Payouts:    st.Payouts,
	}})
}

func (rm *RoomManager) emit(ev Event) {
	select {
	case rm.events <- ev:
	default:
		rm.logger.Debug().Str("event", ev.Event).Str("room", ev.RoomID).Msg("event buffer full, dropping event")
	}
}

func (r *room) info() RoomInfo {
	info := RoomInfo{
		ID:         r.id,
		HostName:   r.hostName,
		Peers:      r.host.Roster(),
		Bots:       r.bots,
		Settings:   r.host.Settings(),
		InviteOnly: r.inviteOnly,
		CreatedAt:  r.createdAt,
	}
	if eng := r.host.Engine(); eng != nil {
		st := eng.Snapshot()
		info.InMatch = true
		info.HandNumber = st.HandNumber
		info.Phase = st.Phase
	}
	return info
}
