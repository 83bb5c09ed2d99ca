package models

import "time"

type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhasePreFlop  Phase = "PRE_FLOP"
	PhaseFlop     Phase = "FLOP"
	PhaseTurn     Phase = "TURN"
	PhaseRiver    Phase = "RIVER"
	PhaseShowdown Phase = "SHOWDOWN"
)

// IsBetting reports whether seats are still acting in this phase.
func (p Phase) IsBetting() bool {
	switch p {
	case PhasePreFlop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

type BlindStructure string

const (
	BlindsStandard BlindStructure = "standard"
	BlindsTurbo    BlindStructure = "turbo"
)

type Settings struct {
	StartingChips      int            `json:"startingChips"`
	BlindStructure     BlindStructure `json:"blindStructure"`
	SmallBlind         int            `json:"smallBlind,omitempty"`
	BigBlind           int            `json:"bigBlind,omitempty"`
	AnteEnabled        bool           `json:"anteEnabled"`
	AnteAmount         int            `json:"anteAmount"`
	MaxSeats           int            `json:"maxSeats"`
	BotDifficulty      Difficulty     `json:"botDifficulty"`
	DeckVariant        Variant        `json:"deckVariant"`
	PlayerOrder        []string       `json:"playerOrder,omitempty"`
	RotateDealer       bool           `json:"rotateDealer"`
	TurnTimerEnabled   bool           `json:"turnTimerEnabled"`
	TurnTimerSeconds   int            `json:"turnTimerSeconds"`
	ShowOdds           bool           `json:"showOdds"`
	ShowEnemyOdds      bool           `json:"showEnemyOdds"`
	AICanSeeOdds       bool           `json:"aiCanSeeOdds"`
	AllowCalculator    bool           `json:"allowCalculator"`
	AllowAllCalculator bool           `json:"allowAllCalculator"`
	OddsTrials         int            `json:"oddsTrials,omitempty"`
	RevealAll          bool           `json:"revealAll,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		StartingChips:    1000,
		BlindStructure:   BlindsStandard,
		AnteAmount:       5,
		MaxSeats:         6,
		BotDifficulty:    DifficultyMedium,
		DeckVariant:      Standard,
		RotateDealer:     true,
		TurnTimerSeconds: 30,
		OddsTrials:       1000,
	}
}

// Blinds returns the small and big blind, explicit values winning over the structure.
func (s Settings) Blinds() (int, int) {
	if s.SmallBlind > 0 && s.BigBlind > 0 {
		return s.SmallBlind, s.BigBlind
	}
	if s.BlindStructure == BlindsTurbo {
		return 50, 100
	}
	return 10, 20
}

func (s Settings) TurnTimeout() time.Duration {
	if !s.TurnTimerEnabled || s.TurnTimerSeconds <= 0 {
		return 0
	}
	return time.Duration(s.TurnTimerSeconds) * time.Second
}

type SidePot struct {
	Amount          int      `json:"amount"`
	EligibleSeatIDs []string `json:"eligibleSeatIds"`
}

type EventType string

const (
	EventDeal       EventType = "DEAL"
	EventFlop       EventType = "FLOP"
	EventTurnRiver  EventType = "TURN_RIVER"
	EventCheck      EventType = "CHECK"
	EventCall       EventType = "CALL"
	EventRaise      EventType = "RAISE"
	EventAllIn      EventType = "ALL_IN"
	EventFold       EventType = "FOLD"
	EventWin        EventType = "WIN"
	EventTurnChange EventType = "TURN_CHANGE"
)

// GameEvent tags the latest mutation so observers can react to it once.
type GameEvent struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	SeatID string    `json:"seatId,omitempty"`
	Amount int       `json:"amount,omitempty"`
}

type GameState struct {
	Phase           Phase          `json:"phase"`
	Pot             int            `json:"pot"`
	SidePots        []SidePot      `json:"sidePots,omitempty"`
	Seats           []*Seat        `json:"seats"`
	CommunityCards  []Card         `json:"communityCards"`
	DealerIndex     int            `json:"dealerIndex"`
	SmallBlind      int            `json:"smallBlind"`
	BigBlind        int            `json:"bigBlind"`
	MinBet          int            `json:"minBet"`
	MinRaise        int            `json:"minRaise"`
	CurrentSeatID   string         `json:"currentSeatId,omitempty"`
	LastAggressorID string         `json:"lastAggressorId,omitempty"`
	Winners         []string       `json:"winners,omitempty"`
	Payouts         map[string]int `json:"payouts,omitempty"`
	TurnExpiresAt   *time.Time     `json:"turnExpiresAt,omitempty"`
	HandsPlayed     int            `json:"handsPlayed"`
	HandNumber      int            `json:"handNumber"`
	Sequence        uint64         `json:"sequence"`
	Settings        Settings       `json:"settings"`
	LastEvent       *GameEvent     `json:"lastEvent,omitempty"`
}

func (gs *GameState) SeatByID(id string) *Seat {
	for _, s := range gs.Seats {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (gs *GameState) SeatIndex(id string) int {
	for i, s := range gs.Seats {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// HighestBet is the largest current-round bet among all seats.
func (gs *GameState) HighestBet() int {
	highest := 0
	for _, s := range gs.Seats {
		if s.CurrentBet > highest {
			highest = s.CurrentBet
		}
	}
	return highest
}

// Clone deep-copies the state so it can leave the engine lock.
func (gs *GameState) Clone() *GameState {
	c := *gs
	c.Seats = make([]*Seat, len(gs.Seats))
	for i, s := range gs.Seats {
		c.Seats[i] = s.Clone()
	}
	c.CommunityCards = append([]Card(nil), gs.CommunityCards...)
	c.Winners = append([]string(nil), gs.Winners...)
	c.Settings.PlayerOrder = append([]string(nil), gs.Settings.PlayerOrder...)
	if gs.SidePots != nil {
		c.SidePots = make([]SidePot, len(gs.SidePots))
		for i, p := range gs.SidePots {
			c.SidePots[i] = SidePot{Amount: p.Amount, EligibleSeatIDs: append([]string(nil), p.EligibleSeatIDs...)}
		}
	}
	if gs.Payouts != nil {
		c.Payouts = make(map[string]int, len(gs.Payouts))
		for k, v := range gs.Payouts {
			c.Payouts[k] = v
		}
	}
	if gs.TurnExpiresAt != nil {
		t := *gs.TurnExpiresAt
		c.TurnExpiresAt = &t
	}
	if gs.LastEvent != nil {
		ev := *gs.LastEvent
		c.LastEvent = &ev
	}
	return &c
}
