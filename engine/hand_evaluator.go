package engine

import (
	"fmt"
	"sort"

	"pocket-poker/models"
)

type scoredHand struct {
	category models.HandCategory
	key      uint32
	cards    []models.Card
}

type rankGroup struct {
	value int
	cards []models.Card
}

var suitOrder = map[models.Suit]int{
	models.Spades:   0,
	models.Hearts:   1,
	models.Diamonds: 2,
	models.Clubs:    3,
}

// sortCanonical orders cards by value descending, then by suit, so the same
// card set always yields the same best five in the same order.
func sortCanonical(cards []models.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if vi, vj := cards[i].Value(), cards[j].Value(); vi != vj {
			return vi > vj
		}
		return suitOrder[cards[i].Suit] < suitOrder[cards[j].Suit]
	})
}

// Evaluate ranks the best hand available from hole and board cards.
// Fewer than five cards are ranked as a partial hand (pairs, trips, quads, high card).
func Evaluate(hole, board []models.Card) models.HandResult {
	all := make([]models.Card, 0, len(hole)+len(board))
	all = append(all, hole...)
	all = append(all, board...)
	sortCanonical(all)

	var best scoredHand
	if len(all) <= 5 {
		best = scoreCards(all)
	} else {
		forEachFive(all, func(five []models.Card) {
			s := scoreCards(five)
			if best.cards == nil || s.key > best.key {
				s.cards = append([]models.Card(nil), s.cards...)
				best = s
			}
		})
	}

	result := models.HandResult{
		Category: best.category,
		Name:     best.category.String(),
		Key:      best.key,
		Cards:    best.cards,
	}
	result.WinningCards = WinningCards(result)
	result.Description = Describe(result, all)
	return result
}

// CompareHands returns 1 if a beats b, -1 if b beats a, 0 on a tie.
func CompareHands(a, b models.HandResult) int {
	switch {
	case a.Key > b.Key:
		return 1
	case a.Key < b.Key:
		return -1
	}
	return 0
}

// WinningCards returns the minimal subset of the best five that makes the category.
func WinningCards(hr models.HandResult) []models.Card {
	switch hr.Category {
	case models.Pair, models.TwoPair:
		return cardsWithCount(hr.Cards, 2)
	case models.ThreeOfAKind:
		return cardsWithCount(hr.Cards, 3)
	case models.FourOfAKind:
		return cardsWithCount(hr.Cards, 4)
	case models.HighCard:
		if len(hr.Cards) == 0 {
			return nil
		}
		return []models.Card{hr.Cards[0]}
	}
	return append([]models.Card(nil), hr.Cards...)
}

// GetWinners evaluates every active seat holding cards and returns the ids tied for best.
func GetWinners(seats []*models.Seat, board []models.Card) []string {
	var winners []string
	var bestKey uint32
	for _, s := range seats {
		if !s.IsActive || len(s.HoleCards) != 2 {
			continue
		}
		hr := Evaluate(s.HoleCards, board)
		switch {
		case winners == nil || hr.Key > bestKey:
			bestKey = hr.Key
			winners = []string{s.ID}
		case hr.Key == bestKey:
			winners = append(winners, s.ID)
		}
	}
	return winners
}

func scoreCards(cards []models.Card) scoredHand {
	if len(cards) == 0 {
		return scoredHand{category: models.HighCard, key: uint32(models.HighCard) << 20}
	}

	groups := groupByRank(cards)
	ordered := make([]models.Card, 0, len(cards))
	values := make([]int, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g.cards...)
		values = append(values, g.value)
	}

	flush, straight, high := false, false, 0
	if len(cards) == 5 {
		flush = isFlush(cards)
		high, straight = straightHigh(values)
	}

	var category models.HandCategory
	switch {
	case straight && flush && high == 14:
		category = models.RoyalFlush
	case straight && flush:
		category = models.StraightFlush
	case len(groups[0].cards) == 4:
		category = models.FourOfAKind
	case len(groups[0].cards) == 3 && len(groups) > 1 && len(groups[1].cards) == 2:
		category = models.FullHouse
	case flush:
		category = models.Flush
	case straight:
		category = models.Straight
	case len(groups[0].cards) == 3:
		category = models.ThreeOfAKind
	case len(groups[0].cards) == 2 && len(groups) > 1 && len(groups[1].cards) == 2:
		category = models.TwoPair
	case len(groups[0].cards) == 2:
		category = models.Pair
	default:
		category = models.HighCard
	}

	if straight {
		values = []int{high}
		if high == 5 {
			// the ace plays low in the wheel
			ordered = append(ordered[1:], ordered[0])
		}
	}

	return scoredHand{
		category: category,
		key:      packKey(category, values),
		cards:    ordered,
	}
}

func packKey(category models.HandCategory, values []int) uint32 {
	key := uint32(category) << 20
	for i := 0; i < len(values) && i < 5; i++ {
		key |= uint32(values[i]) << uint(16-4*i)
	}
	return key
}

// groupByRank orders rank groups by size, then by rank, both descending.
func groupByRank(cards []models.Card) []rankGroup {
	byValue := make(map[int][]models.Card)
	for _, c := range cards {
		byValue[c.Value()] = append(byValue[c.Value()], c)
	}
	groups := make([]rankGroup, 0, len(byValue))
	for v, cs := range byValue {
		groups = append(groups, rankGroup{value: v, cards: cs})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].cards) != len(groups[j].cards) {
			return len(groups[i].cards) > len(groups[j].cards)
		}
		return groups[i].value > groups[j].value
	})
	return groups
}

func isFlush(cards []models.Card) bool {
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

// straightHigh expects five distinct values sorted descending.
func straightHigh(values []int) (int, bool) {
	if len(values) != 5 {
		return 0, false
	}
	if values[0]-values[4] == 4 {
		return values[0], true
	}
	if values[0] == 14 && values[1] == 5 && values[4] == 2 {
		return 5, true
	}
	return 0, false
}

func cardsWithCount(cards []models.Card, n int) []models.Card {
	counts := make(map[models.Rank]int)
	for _, c := range cards {
		counts[c.Rank]++
	}
	var out []models.Card
	for _, c := range cards {
		if counts[c.Rank] == n {
			out = append(out, c)
		}
	}
	return out
}

func forEachFive(cards []models.Card, fn func([]models.Card)) {
	n := len(cards)
	five := make([]models.Card, 5)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five[0], five[1], five[2], five[3], five[4] = cards[a], cards[b], cards[c], cards[d], cards[e]
						fn(five)
					}
				}
			}
		}
	}
}

// Describe renders a hand such as "Two Pair, A's & K's". Full seven card hands
// use the description of the seven card scorer.
func Describe(hr models.HandResult, all []models.Card) string {
	if len(all) == 7 {
		if desc, err := describeSeven(all); err == nil {
			return desc
		}
	}
	if len(hr.Cards) == 0 {
		return "No cards"
	}

	top := hr.Cards[0].Rank
	switch hr.Category {
	case models.RoyalFlush:
		return "Royal Flush"
	case models.StraightFlush, models.Straight:
		high := top
		if hr.Cards[0].Rank == models.Five && hr.Cards[len(hr.Cards)-1].Rank == models.Ace {
			high = models.Five
		}
		return fmt.Sprintf("%s, %s High", hr.Category, high)
	case models.FourOfAKind, models.ThreeOfAKind:
		return fmt.Sprintf("%s, %s's", hr.Category, top)
	case models.FullHouse:
		return fmt.Sprintf("Full House, %s's over %s's", top, hr.Cards[3].Rank)
	case models.Flush:
		return fmt.Sprintf("Flush, %s High", top)
	case models.TwoPair:
		return fmt.Sprintf("Two Pair, %s's & %s's", top, hr.Cards[2].Rank)
	case models.Pair:
		return fmt.Sprintf("Pair of %s's", top)
	}
	return fmt.Sprintf("High Card, %s", top)
}
