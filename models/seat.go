package models

type ActionType string

const (
	ActionFold  ActionType = "FOLD"
	ActionCheck ActionType = "CHECK"
	ActionCall  ActionType = "CALL"
	ActionRaise ActionType = "RAISE"
	ActionAllIn ActionType = "ALL_IN"
)

type PlayStyle string

const (
	StyleRandom     PlayStyle = "RANDOM"
	StyleAggressive PlayStyle = "AGGRESSIVE"
	StylePassive    PlayStyle = "PASSIVE"
	StyleTricky     PlayStyle = "TRICKY"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Seat is a participant at the table. Seats live for the whole match.
type Seat struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	AvatarURL        string      `json:"avatarUrl,omitempty"`
	Chips            int         `json:"chips"`
	HoleCards        []Card      `json:"holeCards"`
	IsActive         bool        `json:"isActive"`
	IsAllIn          bool        `json:"isAllIn"`
	HasActed         bool        `json:"hasActed"`
	CurrentBet       int         `json:"currentBet"`
	TotalContributed int         `json:"totalContributed"`
	IsBot            bool        `json:"isBot"`
	UseAI            bool        `json:"useAI,omitempty"`
	PlayStyle        PlayStyle   `json:"playStyle,omitempty"`
	Difficulty       Difficulty  `json:"difficulty,omitempty"`
	IsRemote         bool        `json:"isRemote,omitempty"`
	PeerID           string      `json:"peerId,omitempty"`
	HasLeft          bool        `json:"hasLeft,omitempty"`
	WinOdds          *int        `json:"winOdds,omitempty"`
	HandResult       *HandResult `json:"handResult,omitempty"`
}

func NewSeat(id, name string, chips int) *Seat {
	return &Seat{
		ID:        id,
		Name:      name,
		Chips:     chips,
		HoleCards: make([]Card, 0, 2),
	}
}

// ResetForHand clears per-hand fields. Seats without chips or that left sit the hand out.
func (s *Seat) ResetForHand() {
	s.HoleCards = make([]Card, 0, 2)
	s.IsActive = s.Chips > 0 && !s.HasLeft
	s.IsAllIn = false
	s.HasActed = false
	s.CurrentBet = 0
	s.TotalContributed = 0
	s.WinOdds = nil
	s.HandResult = nil
}

// PlaceBet moves up to amount chips from the stack into the current bet and
// returns what was actually paid. An emptied stack marks the seat all-in.
func (s *Seat) PlaceBet(amount int) int {
	if amount >= s.Chips {
		amount = s.Chips
		s.IsAllIn = true
	}
	s.Chips -= amount
	s.CurrentBet += amount
	s.TotalContributed += amount
	return amount
}

// PostDead pays chips into the pot without counting toward the current bet.
func (s *Seat) PostDead(amount int) int {
	if amount >= s.Chips {
		amount = s.Chips
		s.IsAllIn = true
	}
	s.Chips -= amount
	s.TotalContributed += amount
	return amount
}

// CanAct reports whether the seat still makes betting decisions this hand.
func (s *Seat) CanAct() bool {
	return s.IsActive && !s.IsAllIn
}

func (s *Seat) Clone() *Seat {
	c := *s
	c.HoleCards = append([]Card(nil), s.HoleCards...)
	if s.WinOdds != nil {
		odds := *s.WinOdds
		c.WinOdds = &odds
	}
	if s.HandResult != nil {
		hr := s.HandResult.Clone()
		c.HandResult = &hr
	}
	return &c
}
