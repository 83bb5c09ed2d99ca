package models

type HandCategory int

const (
	HighCard HandCategory = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (hc HandCategory) String() string {
	names := []string{"", "High Card", "Pair", "Two Pair", "Three of a Kind", "Straight", "Flush", "Full House", "Four of a Kind", "Straight Flush", "Royal Flush"}
	if hc < HighCard || hc > RoyalFlush {
		return "Unknown"
	}
	return names[hc]
}

// HandResult is the evaluated best hand of a seat. Key orders hands totally.
type HandResult struct {
	Category     HandCategory `json:"category"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Key          uint32       `json:"key"`
	Cards        []Card       `json:"cards"`
	WinningCards []Card       `json:"winningCards"`
}

func (hr HandResult) Clone() HandResult {
	hr.Cards = append([]Card(nil), hr.Cards...)
	hr.WinningCards = append([]Card(nil), hr.WinningCards...)
	return hr
}
