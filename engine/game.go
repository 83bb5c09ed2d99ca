package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pocket-poker/models"
)

// StateListener receives a snapshot after every mutation. Snapshots are
// shared between listeners and must not be modified.
type StateListener func(state *models.GameState)

type OddsMode int

const (
	OddsAsync OddsMode = iota
	OddsSync
)

// GameEngine is the authoritative betting state machine of one match.
// A single mutex serializes every mutation.
type GameEngine struct {
	mu        sync.Mutex
	state     *models.GameState
	deck      *models.Deck
	pots      *PotCalculator
	odds      *OddsCalculator
	oddsMode  OddsMode
	clock     *TurnClock
	listeners []StateListener
	rng       *rand.Rand
	logger    zerolog.Logger
}

type Option func(*GameEngine)

func WithRand(rng *rand.Rand) Option {
	return func(e *GameEngine) {
		e.rng = rng
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *GameEngine) {
		e.logger = logger
	}
}

func WithOddsCalculator(oc *OddsCalculator) Option {
	return func(e *GameEngine) {
		e.odds = oc
	}
}

// WithSyncOdds computes win odds inline instead of on a background goroutine.
func WithSyncOdds() Option {
	return func(e *GameEngine) {
		e.oddsMode = OddsSync
	}
}

func NewGameEngine(settings models.Settings, seats []*models.Seat, opts ...Option) (*GameEngine, error) {
	if len(seats) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 seats, got %d", ErrNotEnoughPlayers, len(seats))
	}
	defaults := models.DefaultSettings()
	if settings.StartingChips <= 0 {
		settings.StartingChips = defaults.StartingChips
	}
	if settings.DeckVariant == "" {
		settings.DeckVariant = models.Standard
	}

	e := &GameEngine{
		pots:   NewPotCalculator(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.logger = e.logger.With().Str("component", "engine").Logger()
	e.deck = models.NewDeck(settings.DeckVariant, e.rng)
	e.deck.SetLogger(e.logger)
	if e.odds == nil {
		e.odds = NewOddsCalculator(
			WithTrials(settings.OddsTrials),
			WithVariant(settings.DeckVariant),
			WithOddsLogger(e.logger),
		)
	}

	arranged := ArrangeSeats(seats, settings.PlayerOrder)
	for _, s := range arranged {
		if s.Chips == 0 && !s.HasLeft {
			s.Chips = settings.StartingChips
		}
		s.ResetForHand()
		s.IsActive = false
	}

	sb, bb := settings.Blinds()
	e.state = &models.GameState{
		Phase:          models.PhaseIdle,
		Seats:          arranged,
		CommunityCards: []models.Card{},
		SmallBlind:     sb,
		BigBlind:       bb,
		MinBet:         bb,
		MinRaise:       bb,
		Settings:       settings,
	}
	if timeout := settings.TurnTimeout(); timeout > 0 {
		e.clock = NewTurnClock(timeout, e.handleExpiry)
	}
	return e, nil
}

// OnStateChanged registers a listener called after every mutation.
func (e *GameEngine) OnStateChanged(fn StateListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// StartHand deals a new hand. The dealer button moves only after the first hand.
func (e *GameEngine) StartHand() error {
	e.mu.Lock()
	snap, err := e.startHandLocked()
	e.mu.Unlock()
	if snap != nil {
		e.notify(snap)
	}
	return err
}

func (e *GameEngine) startHandLocked() (*models.GameState, error) {
	st := e.state
	if st.Phase.IsBetting() {
		return nil, ErrHandInProgress
	}
	if countSeats(st.Seats, hasChips) < 2 {
		if st.Phase == models.PhaseIdle {
			return nil, ErrNotEnoughPlayers
		}
		// the match is over; publish the idle table once
		st.Phase = models.PhaseIdle
		st.CurrentSeatID = ""
		st.TurnExpiresAt = nil
		return e.commit(), ErrNotEnoughPlayers
	}

	pf := NewPositionFinder(st.Seats)
	if (st.HandsPlayed > 0 && st.Settings.RotateDealer) || !hasChips(st.Seats[st.DealerIndex]) {
		st.DealerIndex = pf.findNextWithChips(st.DealerIndex)
	}
	st.HandsPlayed++
	st.HandNumber++

	e.deck.Reset(st.Settings.DeckVariant)
	e.deck.Shuffle()

	sb, bb := st.Settings.Blinds()
	st.SmallBlind, st.BigBlind = sb, bb
	st.MinBet, st.MinRaise = bb, bb
	st.Pot = 0
	st.SidePots = nil
	st.CommunityCards = []models.Card{}
	st.Winners = nil
	st.Payouts = nil
	st.LastAggressorID = ""
	st.CurrentSeatID = ""
	st.TurnExpiresAt = nil
	for _, s := range st.Seats {
		s.ResetForHand()
	}

	if st.Settings.AnteEnabled && st.Settings.AnteAmount > 0 {
		for _, s := range filterSeats(st.Seats, isActive) {
			st.Pot += s.PostDead(st.Settings.AnteAmount)
		}
	}

	active := countSeats(st.Seats, isActive)
	sbPos, bbPos := pf.calculateBlindPositions(st.DealerIndex, active)
	st.Pot += st.Seats[sbPos].PlaceBet(sb)
	st.Pot += st.Seats[bbPos].PlaceBet(bb)

	for _, s := range filterSeats(st.Seats, isActive) {
		s.HoleCards = e.deck.Deal(2)
	}

	st.Phase = models.PhasePreFlop
	st.LastEvent = newEvent(models.EventDeal, "", 0)

	e.logger.Info().
		Int("hand", st.HandNumber).
		Str("dealer", st.Seats[st.DealerIndex].ID).
		Str("smallBlind", st.Seats[sbPos].ID).
		Str("bigBlind", st.Seats[bbPos].ID).
		Int("seats", active).
		Msg("hand started")

	e.computeOdds()
	e.settle(pf.firstPreflopActor(st.DealerIndex, bbPos, active))
	return e.commit(), nil
}

// ApplyAction validates and applies one betting action. Rejections wrap
// ErrIllegalAction and leave the state untouched.
func (e *GameEngine) ApplyAction(seatID string, action models.ActionType, amount int) error {
	e.mu.Lock()
	snap, err := e.applyActionLocked(seatID, action, amount)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.notify(snap)
	return nil
}

func (e *GameEngine) applyActionLocked(seatID string, action models.ActionType, amount int) (*models.GameState, error) {
	seat, err := NewTurnValidator(e.state).ValidateTurn(seatID)
	if err != nil {
		return nil, err
	}

	evType, paid, err := NewActionProcessor(e.state).process(seat, action, amount)
	if err != nil {
		if errors.Is(err, ErrUnknownAction) {
			return nil, reject(fmt.Errorf("%w: %q", ErrUnknownAction, action))
		}
		return nil, reject(err)
	}

	evAmount := paid
	if evType == models.EventRaise || evType == models.EventAllIn {
		evAmount = seat.CurrentBet
	}
	e.state.LastEvent = newEvent(evType, seat.ID, evAmount)
	e.logger.Debug().
		Str("seat", seat.ID).
		Str("action", string(action)).
		Int("amount", evAmount).
		Str("phase", string(e.state.Phase)).
		Msg("action applied")

	e.settle(e.state.SeatIndex(seatID) + 1)
	return e.commit(), nil
}

// HandleTimeout applies the default action for the acting seat: check if free, else fold.
func (e *GameEngine) HandleTimeout(seatID string) error {
	e.mu.Lock()
	seat := e.state.SeatByID(seatID)
	if seat == nil {
		e.mu.Unlock()
		return reject(ErrSeatNotFound)
	}
	snap, err := e.applyActionLocked(seatID, e.defaultAction(seat), 0)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.notify(snap)
	return nil
}

func (e *GameEngine) handleExpiry(seatID string, handNumber int, phase models.Phase) {
	e.mu.Lock()
	st := e.state
	if st.HandNumber != handNumber || st.Phase != phase || st.CurrentSeatID != seatID {
		e.mu.Unlock()
		return
	}
	action := e.defaultAction(st.SeatByID(seatID))
	snap, err := e.applyActionLocked(seatID, action, 0)
	e.mu.Unlock()
	if err != nil {
		e.logger.Warn().Err(err).Str("seat", seatID).Msg("timeout action rejected")
		return
	}
	e.logger.Info().Str("seat", seatID).Str("action", string(action)).Msg("turn timed out")
	e.notify(snap)
}

func (e *GameEngine) defaultAction(seat *models.Seat) models.ActionType {
	if IsCheckAvailableFor(e.state, seat) {
		return models.ActionCheck
	}
	return models.ActionFold
}

// MarkLeft deactivates a departed seat. If it was acting, a fold is applied for it.
func (e *GameEngine) MarkLeft(seatID string) error {
	e.mu.Lock()
	st := e.state
	seat := st.SeatByID(seatID)
	if seat == nil {
		e.mu.Unlock()
		return ErrSeatNotFound
	}
	if seat.HasLeft {
		e.mu.Unlock()
		return nil
	}
	seat.HasLeft = true
	seat.Name += " (left)"

	var snap *models.GameState
	var err error
	switch {
	case st.Phase.IsBetting() && seat.IsActive && st.CurrentSeatID == seatID:
		snap, err = e.applyActionLocked(seatID, models.ActionFold, 0)
	case st.Phase.IsBetting() && seat.IsActive:
		seat.IsActive = false
		seat.HasActed = true
		st.LastEvent = newEvent(models.EventFold, seatID, 0)
		e.settleAround(st.CurrentSeatID)
		snap = e.commit()
	default:
		seat.IsActive = false
		snap = e.commit()
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.logger.Info().Str("seat", seatID).Msg("seat left")
	e.notify(snap)
	return nil
}

// RestartMatch resets every remaining stack to the starting chips.
func (e *GameEngine) RestartMatch() {
	e.mu.Lock()
	e.stopClock()
	st := e.state
	for _, s := range st.Seats {
		if s.HasLeft {
			s.Chips = 0
		} else {
			s.Chips = st.Settings.StartingChips
		}
		s.ResetForHand()
		s.IsActive = false
	}
	st.Phase = models.PhaseIdle
	st.Pot = 0
	st.SidePots = nil
	st.CommunityCards = []models.Card{}
	st.Winners = nil
	st.Payouts = nil
	st.CurrentSeatID = ""
	st.LastAggressorID = ""
	st.TurnExpiresAt = nil
	st.DealerIndex = 0
	st.HandsPlayed = 0
	st.LastEvent = nil
	snap := e.commit()
	e.mu.Unlock()
	e.notify(snap)
}

// Close stops the turn clock.
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopClock()
}

// settle moves the hand on after a change: award an uncontested pot, close
// the round, or pass the turn to the next seat needing to act from pos.
func (e *GameEngine) settle(pos int) {
	st := e.state
	if countSeats(st.Seats, isActive) == 1 {
		e.awardUncontested()
		return
	}
	if e.isBettingRoundComplete() {
		e.advanceToNextRound()
		return
	}
	next := NewPositionFinder(st.Seats).findFrom(pos, needsToAct(st.HighestBet()))
	e.setTurn(next)
}

// settleAround re-checks the round after a seat that was not acting drops out.
// The acting seat keeps its turn and its deadline if it still has to act.
func (e *GameEngine) settleAround(actingID string) {
	st := e.state
	pos := st.SeatIndex(actingID)
	if pos >= 0 && countSeats(st.Seats, isActive) > 1 && !e.isBettingRoundComplete() {
		if next := NewPositionFinder(st.Seats).findFrom(pos, needsToAct(st.HighestBet())); next == pos {
			return
		}
	}
	e.settle(pos)
}

func (e *GameEngine) isBettingRoundComplete() bool {
	highest := e.state.HighestBet()
	for _, s := range filterSeats(e.state.Seats, canAct) {
		if !s.HasActed || s.CurrentBet < highest {
			return false
		}
	}
	return true
}

func (e *GameEngine) advanceToNextRound() {
	st := e.state
	resetSeatsForNewRound(st.Seats)
	st.MinBet = 0
	st.MinRaise = st.BigBlind

	var ev models.EventType
	switch st.Phase {
	case models.PhasePreFlop:
		st.CommunityCards = append(st.CommunityCards, e.deck.Deal(3)...)
		st.Phase = models.PhaseFlop
		ev = models.EventFlop
	case models.PhaseFlop:
		st.CommunityCards = append(st.CommunityCards, e.deck.Deal(1)...)
		st.Phase = models.PhaseTurn
		ev = models.EventTurnRiver
	case models.PhaseTurn:
		st.CommunityCards = append(st.CommunityCards, e.deck.Deal(1)...)
		st.Phase = models.PhaseRiver
		ev = models.EventTurnRiver
	default:
		e.showdown()
		return
	}
	st.LastEvent = newEvent(ev, "", 0)

	// nobody left to bet against: run out the board
	if countSeats(st.Seats, canAct) < 2 {
		e.advanceToNextRound()
		return
	}

	e.computeOdds()
	e.setTurn(NewPositionFinder(st.Seats).firstPostflopActor(st.DealerIndex))
}

func (e *GameEngine) showdown() {
	st := e.state
	e.endTurns()
	st.Phase = models.PhaseShowdown

	for _, s := range filterSeats(st.Seats, isActive) {
		hr := Evaluate(s.HoleCards, st.CommunityCards)
		s.HandResult = &hr
	}

	pots := e.pots.CalculatePots(st.Seats)
	payouts, winners := e.pots.DistributeWinnings(pots, st.Seats, st.DealerIndex)
	for id, amount := range payouts {
		st.SeatByID(id).Chips += amount
		st.Pot -= amount
	}
	st.SidePots = pots
	st.Payouts = payouts
	st.Winners = winners

	if len(winners) > 0 {
		st.LastEvent = newEvent(models.EventWin, winners[0], payouts[winners[0]])
	}
	e.logger.Info().
		Int("hand", st.HandNumber).
		Strs("winners", winners).
		Int("pots", len(pots)).
		Msg("showdown")
}

func (e *GameEngine) awardUncontested() {
	st := e.state
	e.endTurns()
	winner := filterSeats(st.Seats, isActive)[0]
	amount := st.Pot

	winner.Chips += amount
	st.Pot = 0
	st.SidePots = []models.SidePot{{Amount: amount, EligibleSeatIDs: []string{winner.ID}}}
	st.Payouts = map[string]int{winner.ID: amount}
	st.Winners = []string{winner.ID}
	st.Phase = models.PhaseShowdown
	st.LastEvent = newEvent(models.EventWin, winner.ID, amount)

	e.logger.Info().Int("hand", st.HandNumber).Str("winner", winner.ID).Int("amount", amount).Msg("pot awarded uncontested")
}

func (e *GameEngine) setTurn(pos int) {
	st := e.state
	if pos < 0 {
		e.endTurns()
		return
	}
	seat := st.Seats[pos]
	st.CurrentSeatID = seat.ID
	st.TurnExpiresAt = nil
	if e.clock != nil {
		deadline := e.clock.Start(seat.ID, st.HandNumber, st.Phase)
		st.TurnExpiresAt = &deadline
	}
}

func (e *GameEngine) endTurns() {
	e.state.CurrentSeatID = ""
	e.state.TurnExpiresAt = nil
	e.stopClock()
}

func (e *GameEngine) stopClock() {
	if e.clock != nil {
		e.clock.Stop()
	}
}

// computeOdds fills WinOdds for seats whose odds are shown to someone.
func (e *GameEngine) computeOdds() {
	st := e.state
	active := countSeats(st.Seats, isActive)
	board := append([]models.Card(nil), st.CommunityCards...)

	holes := make(map[string][]models.Card)
	for _, s := range filterSeats(st.Seats, isActive) {
		if len(s.HoleCards) == 2 && e.wantsOdds(s) {
			holes[s.ID] = append([]models.Card(nil), s.HoleCards...)
		}
	}
	if len(holes) == 0 {
		return
	}

	if e.oddsMode == OddsSync {
		for id, hole := range holes {
			odds := e.odds.Calculate(hole, board, active)
			st.SeatByID(id).WinOdds = &odds
		}
		return
	}

	hand, phase := st.HandNumber, st.Phase
	go func() {
		results := make(map[string]int, len(holes))
		for id, hole := range holes {
			results[id] = e.odds.Calculate(hole, board, active)
		}

		e.mu.Lock()
		if e.state.HandNumber != hand || e.state.Phase != phase {
			e.mu.Unlock()
			return
		}
		for id, odds := range results {
			if s := e.state.SeatByID(id); s != nil && s.IsActive {
				odds := odds
				s.WinOdds = &odds
			}
		}
		snap := e.commit()
		e.mu.Unlock()
		e.notify(snap)
	}()
}

func (e *GameEngine) wantsOdds(s *models.Seat) bool {
	set := e.state.Settings
	if s.IsBot {
		return set.ShowEnemyOdds || set.AllowAllCalculator || (s.UseAI && set.AICanSeeOdds)
	}
	return set.ShowOdds || set.AllowCalculator || set.AllowAllCalculator
}

// commit bumps the sequence and snapshots the state. Caller holds mu.
func (e *GameEngine) commit() *models.GameState {
	e.state.Sequence++
	return e.state.Clone()
}

func (e *GameEngine) notify(snap *models.GameState) {
	e.mu.Lock()
	listeners := append([]StateListener(nil), e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// GetState returns the view of the state that viewerID may see.
func (e *GameEngine) GetState(viewerID string) *models.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Sanitize(e.state, viewerID)
}

// Snapshot returns an unsanitized deep copy for the host.
func (e *GameEngine) Snapshot() *models.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

func (e *GameEngine) Settings() models.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Settings
}

func (e *GameEngine) IsCheckAvailable(seatID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	seat := e.state.SeatByID(seatID)
	return seat != nil && IsCheckAvailableFor(e.state, seat)
}

// MinRaiseTo is the smallest legal raise total.
func (e *GameEngine) MinRaiseTo() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return MinRaiseTotal(e.state)
}

// LegalActions lists what seatID may do now; empty when it is not their turn.
func (e *GameEngine) LegalActions(seatID string) []models.ActionType {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := NewTurnValidator(e.state).ValidateTurn(seatID); err != nil {
		return nil
	}
	return LegalActionsFor(e.state, e.state.SeatByID(seatID))
}

func IsCheckAvailableFor(state *models.GameState, seat *models.Seat) bool {
	return AmountOwed(state, seat) == 0
}

// AmountOwed is what seat must add to stay in the hand: the larger of the
// minimum bet and the highest bet, capped by what the other live seats can
// still put in. The cap keeps a short all-in blind from costing more to call.
func AmountOwed(state *models.GameState, seat *models.Seat) int {
	target := state.MinBet
	if highest := state.HighestBet(); highest > target {
		target = highest
	}
	reach := 0
	for _, s := range state.Seats {
		if s.ID == seat.ID || !s.IsActive {
			continue
		}
		if r := s.CurrentBet + s.Chips; r > reach {
			reach = r
		}
	}
	if reach < target {
		target = reach
	}
	if owed := target - seat.CurrentBet; owed > 0 {
		return owed
	}
	return 0
}

func MinRaiseTotal(state *models.GameState) int {
	return state.MinBet + state.MinRaise
}

// LegalActionsFor works on any snapshot, so bots and clients can use it too.
func LegalActionsFor(state *models.GameState, seat *models.Seat) []models.ActionType {
	actions := []models.ActionType{models.ActionFold}
	if IsCheckAvailableFor(state, seat) {
		actions = append(actions, models.ActionCheck)
	} else {
		actions = append(actions, models.ActionCall)
	}
	if seat.CurrentBet+seat.Chips > state.MinBet {
		actions = append(actions, models.ActionRaise)
	}
	if seat.Chips > 0 {
		actions = append(actions, models.ActionAllIn)
	}
	return actions
}

func newEvent(t models.EventType, seatID string, amount int) *models.GameEvent {
	return &models.GameEvent{
		ID:     uuid.NewString(),
		Type:   t,
		SeatID: seatID,
		Amount: amount,
	}
}
