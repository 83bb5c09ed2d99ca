package engine

import (
	"fmt"

	"github.com/paulhankin/poker"

	"pocket-poker/models"
)

// toPokerCard converts to the seven card scorer's encoding (ace is rank 1).
func toPokerCard(c models.Card) (poker.Card, error) {
	var s poker.Suit
	switch c.Suit {
	case models.Clubs:
		s = poker.Club
	case models.Diamonds:
		s = poker.Diamond
	case models.Hearts:
		s = poker.Heart
	case models.Spades:
		s = poker.Spade
	default:
		var zero poker.Card
		return zero, fmt.Errorf("unknown suit %q", c.Suit)
	}
	r := c.Value()
	if r == 14 {
		r = 1
	}
	return poker.MakeCard(s, poker.Rank(r))
}

func toPokerCards(cards []models.Card) ([]poker.Card, error) {
	out := make([]poker.Card, len(cards))
	for i, c := range cards {
		pc, err := toPokerCard(c)
		if err != nil {
			return nil, err
		}
		out[i] = pc
	}
	return out, nil
}

// Eval7 scores exactly seven cards; higher is better.
func Eval7(cards []models.Card) (int16, error) {
	if len(cards) != 7 {
		return 0, fmt.Errorf("eval7 needs 7 cards, got %d", len(cards))
	}
	pcs, err := toPokerCards(cards)
	if err != nil {
		return 0, err
	}
	var a7 [7]poker.Card
	copy(a7[:], pcs)
	return poker.Eval7(&a7), nil
}

func describeSeven(cards []models.Card) (string, error) {
	pcs, err := toPokerCards(cards)
	if err != nil {
		return "", err
	}
	return poker.Describe(pcs)
}
