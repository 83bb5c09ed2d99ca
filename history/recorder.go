package history

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thoas/go-funk"

	"pocket-poker/models"
)

// Recorder turns the engine's snapshot stream into hand history rows. It is
// registered as an engine state listener; each snapshot's LastEvent is
// recorded once.
type Recorder struct {
	store  *Store
	roomID string
	logger zerolog.Logger

	mu          sync.Mutex
	prev        *models.GameState
	lastEventID string
	hand        *HandRecord
	seq         int
}

func NewRecorder(store *Store, roomID string) *Recorder {
	return &Recorder{
		store:  store,
		roomID: roomID,
		logger: store.logger.With().Str("room", roomID).Logger(),
	}
}

// Observe records the mutation described by state. Snapshots older than the
// last one seen are ignored.
func (r *Recorder) Observe(state *models.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prev != nil && state.Sequence <= r.prev.Sequence {
		return
	}
	defer func() { r.prev = state }()

	ev := state.LastEvent
	if ev == nil || ev.ID == r.lastEventID {
		return
	}
	r.lastEventID = ev.ID

	switch ev.Type {
	case models.EventDeal:
		r.startHand(state, ev)
	case models.EventCheck, models.EventCall, models.EventRaise, models.EventAllIn, models.EventFold:
		r.record(ev.ID, ev.Type, state.SeatByID(ev.SeatID), state.Phase, ev.Amount, state.Pot)
	case models.EventFlop, models.EventTurnRiver:
		r.recordClosingAction(state)
		r.record(ev.ID, ev.Type, nil, state.Phase, 0, state.Pot)
	case models.EventWin:
		r.recordClosingAction(state)
		r.finishHand(state, ev)
	}
}

func (r *Recorder) startHand(state *models.GameState, ev *models.GameEvent) {
	seats := make([]seatEntry, 0, len(state.Seats))
	for _, s := range state.Seats {
		seats = append(seats, seatEntry{
			ID:     s.ID,
			Name:   s.Name,
			Chips:  s.Chips + s.TotalContributed,
			IsBot:  s.IsBot,
			Active: s.IsActive,
		})
	}

	hand := &HandRecord{
		RoomID:         r.roomID,
		HandNumber:     state.HandNumber,
		DealerSeatID:   state.Seats[state.DealerIndex].ID,
		SmallBlind:     state.SmallBlind,
		BigBlind:       state.BigBlind,
		Seats:          mustJSON(seats),
		CommunityCards: "[]",
		Winners:        "[]",
		Payouts:        "{}",
	}
	if err := r.store.db.Create(hand).Error; err != nil {
		r.logger.Error().Err(err).Int("hand", state.HandNumber).Msg("failed to save hand")
		r.hand = nil
		return
	}
	r.hand = hand
	r.seq = 0
	r.record(ev.ID, ev.Type, nil, state.Phase, 0, state.Pot)
}

// recordClosingAction recovers the action that closed a betting round. Its
// snapshot carries the street or win event instead of the action, so the
// actor is found by comparing with the previous snapshot.
func (r *Recorder) recordClosingAction(state *models.GameState) {
	prev := r.prev
	if r.hand == nil || prev == nil || prev.HandNumber != state.HandNumber || !prev.Phase.IsBetting() {
		return
	}

	highest := prev.HighestBet()
	for _, before := range prev.Seats {
		after := state.SeatByID(before.ID)
		if after == nil {
			continue
		}
		paid := after.TotalContributed - before.TotalContributed
		switch {
		case before.IsActive && !after.IsActive:
			r.record(uuid.NewString(), models.EventFold, after, prev.Phase, 0, prev.Pot)
			return
		case paid > 0:
			total := before.CurrentBet + paid
			evType, amount := models.EventCall, paid
			switch {
			case after.IsAllIn && !before.IsAllIn:
				evType, amount = models.EventAllIn, total
			case total > highest:
				evType, amount = models.EventRaise, total
			}
			r.record(uuid.NewString(), evType, after, prev.Phase, amount, prev.Pot+paid)
			return
		}
	}

	if prev.CurrentSeatID != "" {
		r.record(uuid.NewString(), models.EventCheck, state.SeatByID(prev.CurrentSeatID), prev.Phase, 0, prev.Pot)
	}
}

func (r *Recorder) record(eventID string, evType models.EventType, seat *models.Seat, phase models.Phase, amount, potAfter int) {
	if r.hand == nil {
		return
	}
	action := ActionRecord{
		HandID:   r.hand.ID,
		EventID:  eventID,
		Sequence: r.seq,
		Phase:    string(phase),
		Type:     string(evType),
		Amount:   amount,
		PotAfter: potAfter,
	}
	if seat != nil {
		action.SeatID = seat.ID
		action.SeatName = seat.Name
	}
	r.seq++

	if err := r.store.db.Create(&action).Error; err != nil {
		r.logger.Error().Err(err).Int64("hand", r.hand.ID).Str("event", action.Type).Msg("failed to save action")
		return
	}
	r.logger.Debug().Int64("hand", r.hand.ID).Str("event", action.Type).Int("seq", action.Sequence).Msg("recorded action")
}

func (r *Recorder) finishHand(state *models.GameState, ev *models.GameEvent) {
	if r.hand == nil {
		return
	}

	pot := 0
	for _, id := range state.Winners {
		pot += state.Payouts[id]
	}
	for i, id := range state.Winners {
		eventID := ev.ID
		if i > 0 {
			eventID = uuid.NewString()
		}
		r.record(eventID, models.EventWin, state.SeatByID(id), state.Phase, state.Payouts[id], pot)
	}

	winningHand := ""
	if len(state.Winners) > 0 {
		if s := state.SeatByID(state.Winners[0]); s != nil && s.HandResult != nil {
			winningHand = s.HandResult.Description
		}
	}
	cards := funk.Map(state.CommunityCards, func(c models.Card) string { return c.String() }).([]string)

	now := time.Now().UTC()
	err := r.store.db.Model(r.hand).Updates(map[string]interface{}{
		"community_cards": mustJSON(cards),
		"pot_amount":      pot,
		"winners":         mustJSON(state.Winners),
		"payouts":         mustJSON(state.Payouts),
		"winning_hand":    winningHand,
		"completed_at":    now,
	}).Error
	if err != nil {
		r.logger.Error().Err(err).Int64("hand", r.hand.ID).Msg("failed to complete hand")
	} else {
		r.logger.Info().Int64("hand", r.hand.ID).Int("number", r.hand.HandNumber).Int("pot", pot).Msg("hand recorded")
	}
	r.hand = nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
