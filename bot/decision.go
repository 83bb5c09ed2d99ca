package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"pocket-poker/engine"
	"pocket-poker/models"
)

type Decision struct {
	Action models.ActionType `json:"action"`
	Amount int               `json:"amount,omitempty"`
}

// Policy chooses an action for the acting seat of a state snapshot.
type Policy interface {
	Decide(ctx context.Context, state *models.GameState, seat *models.Seat) (Decision, error)
}

// HandStrength rates the seat's hand from 1 to 10.
func HandStrength(state *models.GameState, seat *models.Seat) int {
	if len(seat.HoleCards) != 2 {
		return 1
	}
	if state.Phase != models.PhasePreFlop {
		return int(engine.Evaluate(seat.HoleCards, state.CommunityCards).Category)
	}

	c1, c2 := seat.HoleCards[0].Value(), seat.HoleCards[1].Value()
	switch {
	case c1 == c2 && c1 >= 10:
		return 8
	case c1 == c2:
		return 5
	case c1+c2 > 25:
		return 6
	case c1+c2 > 20:
		return 3
	}
	return 1
}

// Decide runs the heuristic decision tree. It never mutates the state.
func Decide(state *models.GameState, seat *models.Seat, rng *rand.Rand) Decision {
	profile := ProfileFor(seat.PlayStyle, seat.Difficulty)
	checkFree := engine.IsCheckAvailableFor(state, seat)
	preflop := state.Phase == models.PhasePreFlop
	strength := HandStrength(state, seat)

	roll := rng.Float64()
	if !checkFree && !preflop && strength < profile.FoldThreshold && roll > profile.Looseness {
		return Decision{Action: models.ActionFold}
	}

	strong := strength >= profile.RaiseThreshold
	bluff := rng.Float64() < profile.BluffFrequency
	if strong && rng.Float64() < profile.SlowPlayFrequency {
		strong = false
	}

	if strong || bluff {
		base := state.MinBet
		if base <= 0 {
			base = state.BigBlind
		}
		target := state.MinBet + base*profile.RaiseMultiplier
		if min := engine.MinRaiseTotal(state); target < min {
			target = min
		}
		return Legalize(state, seat, Decision{Action: models.ActionRaise, Amount: target})
	}

	if checkFree {
		return Decision{Action: models.ActionCheck}
	}
	return Decision{Action: models.ActionCall}
}

// Legalize coerces a decision into one the engine accepts for seat.
// Checks facing a bet become folds, raises are clamped to the legal range
// and raises the stack cannot cover become calls.
func Legalize(state *models.GameState, seat *models.Seat, d Decision) Decision {
	checkFree := engine.IsCheckAvailableFor(state, seat)
	passive := Decision{Action: models.ActionCall}
	if checkFree {
		passive = Decision{Action: models.ActionCheck}
	}

	switch d.Action {
	case models.ActionCheck:
		if !checkFree {
			return Decision{Action: models.ActionFold}
		}
		return Decision{Action: models.ActionCheck}
	case models.ActionCall:
		return passive
	case models.ActionFold:
		if checkFree {
			return passive
		}
		return Decision{Action: models.ActionFold}
	case models.ActionAllIn:
		if seat.Chips <= 0 {
			return passive
		}
		return Decision{Action: models.ActionAllIn}
	case models.ActionRaise:
		maxTotal := seat.CurrentBet + seat.Chips
		minTotal := engine.MinRaiseTotal(state)
		if maxTotal < minTotal {
			return passive
		}
		amount := d.Amount
		if amount < minTotal {
			amount = minTotal
		}
		if amount > maxTotal {
			amount = maxTotal
		}
		return Decision{Action: models.ActionRaise, Amount: amount}
	}
	return Fallback(state, seat)
}

// Fallback is the safe action: check if free, else fold.
func Fallback(state *models.GameState, seat *models.Seat) Decision {
	if engine.IsCheckAvailableFor(state, seat) {
		return Decision{Action: models.ActionCheck}
	}
	return Decision{Action: models.ActionFold}
}

// HeuristicPolicy adapts Decide to the Policy interface with its own RNG.
type HeuristicPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewHeuristicPolicy(rng *rand.Rand) *HeuristicPolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &HeuristicPolicy{rng: rng}
}

func (p *HeuristicPolicy) Decide(_ context.Context, state *models.GameState, seat *models.Seat) (Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Decide(state, seat, p.rng), nil
}
