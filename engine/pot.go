package engine

import (
	"sort"

	"github.com/thoas/go-funk"

	"pocket-poker/models"
)

type PotCalculator struct{}

func NewPotCalculator() *PotCalculator {
	return &PotCalculator{}
}

// CalculatePots splits everything contributed this hand into a main pot and
// side pots, one per all-in level. Folded chips stay in the pots but folded
// seats are never eligible. Levels with the same eligible seats are merged.
func (pc *PotCalculator) CalculatePots(seats []*models.Seat) []models.SidePot {
	levelSet := make(map[int]bool)
	for _, s := range seats {
		if s.TotalContributed > 0 && s.IsActive {
			levelSet[s.TotalContributed] = true
		}
	}
	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	var pots []models.SidePot
	prev := 0
	for i, level := range levels {
		// the top level also sweeps up folded chips above every live contribution
		last := i == len(levels)-1
		amount := 0
		for _, s := range seats {
			contributed := s.TotalContributed
			if contributed > level && !last {
				contributed = level
			}
			if contributed > prev {
				amount += contributed - prev
			}
		}

		var eligible []string
		for _, s := range seats {
			if s.IsActive && s.TotalContributed >= level {
				eligible = append(eligible, s.ID)
			}
		}

		if n := len(pots); n > 0 && sameSeats(pots[n-1].EligibleSeatIDs, eligible) {
			pots[n-1].Amount += amount
		} else if amount > 0 {
			pots = append(pots, models.SidePot{Amount: amount, EligibleSeatIDs: eligible})
		}
		prev = level
	}
	return pots
}

// DistributeWinnings awards each pot to the best eligible hands. Split pots are
// floored and odd chips go to the first winner clockwise from the dealer.
// Returns the payout per seat and the ids that won anything, in seat order.
func (pc *PotCalculator) DistributeWinnings(pots []models.SidePot, seats []*models.Seat, dealerIndex int) (map[string]int, []string) {
	payouts := make(map[string]int)

	// clockwise order starting left of the dealer
	order := make([]*models.Seat, 0, len(seats))
	for i := 1; i <= len(seats); i++ {
		order = append(order, seats[(dealerIndex+i)%len(seats)])
	}

	for _, pot := range pots {
		var best []*models.Seat
		var bestKey uint32
		for _, s := range order {
			if !funk.ContainsString(pot.EligibleSeatIDs, s.ID) || s.HandResult == nil {
				continue
			}
			switch {
			case best == nil || s.HandResult.Key > bestKey:
				bestKey = s.HandResult.Key
				best = []*models.Seat{s}
			case s.HandResult.Key == bestKey:
				best = append(best, s)
			}
		}
		if len(best) == 0 {
			// nobody evaluated, e.g. a single eligible seat
			for _, s := range order {
				if funk.ContainsString(pot.EligibleSeatIDs, s.ID) {
					best = []*models.Seat{s}
					break
				}
			}
		}
		if len(best) == 0 {
			continue
		}

		share := pot.Amount / len(best)
		for _, s := range best {
			payouts[s.ID] += share
		}
		payouts[best[0].ID] += pot.Amount - share*len(best)
	}

	var winners []string
	for _, s := range seats {
		if payouts[s.ID] > 0 {
			winners = append(winners, s.ID)
		}
	}
	return payouts, winners
}

func sameSeats(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
