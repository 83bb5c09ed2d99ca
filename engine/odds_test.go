package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocket-poker/models"
)

func TestOddsCalculator_RequiresTwoHoleCards(t *testing.T) {
	oc := NewOddsCalculator(WithTrials(100), WithSeed(1))
	assert.Equal(t, 0, oc.Calculate(cards("Ah"), nil, 2))
	assert.Equal(t, 0, oc.Calculate(nil, nil, 2))
}

func TestOddsCalculator_Range(t *testing.T) {
	oc := NewOddsCalculator(WithTrials(300), WithSeed(2))
	for _, hole := range []string{"Ah Ad", "7c 2d", "Ks Qs"} {
		for players := 2; players <= 6; players++ {
			odds := oc.Calculate(cards(hole), nil, players)
			assert.GreaterOrEqual(t, odds, 0)
			assert.LessOrEqual(t, odds, 100)
		}
	}
}

func TestOddsCalculator_ReproducibleWithSeed(t *testing.T) {
	a := NewOddsCalculator(WithTrials(500), WithSeed(42), WithWorkers(4))
	b := NewOddsCalculator(WithTrials(500), WithSeed(42), WithWorkers(4))
	hole, board := cards("Jh Th"), cards("9h 2c Kd")
	assert.Equal(t, a.Calculate(hole, board, 3), b.Calculate(hole, board, 3))
}

func TestOddsCalculator_KnownEdges(t *testing.T) {
	oc := NewOddsCalculator(WithTrials(2000), WithSeed(7), WithWorkers(2))

	aces := oc.Calculate(cards("Ah Ad"), nil, 2)
	assert.InDelta(t, 85, aces, 4)

	trash := oc.Calculate(cards("7c 2d"), nil, 2)
	assert.InDelta(t, 35, trash, 5)

	// a made royal flush cannot lose
	nuts := oc.Calculate(cards("Ah Kh"), cards("Qh Jh Th 2c 3d"), 4)
	assert.Equal(t, 100, nuts)

	// nobody to beat
	assert.Equal(t, 100, oc.Calculate(cards("7c 2d"), nil, 1))
}

func TestOddsCalculator_ShortDeck(t *testing.T) {
	oc := NewOddsCalculator(WithTrials(300), WithSeed(9), WithVariant(models.ShortDeck))
	odds := oc.Calculate(cards("Ah Kh"), nil, 9)
	assert.GreaterOrEqual(t, odds, 0)
	assert.LessOrEqual(t, odds, 100)
}

func TestOddsCalculator_Async(t *testing.T) {
	oc := NewOddsCalculator(WithTrials(200), WithSeed(4))
	ch := oc.CalculateAsync(context.Background(), cards("Ah Ad"), nil, 2)
	select {
	case odds, ok := <-ch:
		require.True(t, ok)
		assert.Equal(t, oc.Calculate(cards("Ah Ad"), nil, 2), odds)
	case <-time.After(5 * time.Second):
		t.Fatal("odds never arrived")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range oc.CalculateAsync(ctx, cards("Ah Ad"), nil, 2) {
		// a cancelled context may or may not deliver; it must close either way
	}
}

func TestOddsCalculator_MoreTrialsConverge(t *testing.T) {
	hole, board := cards("Kh Qd"), cards("Jc 7s 2d")
	estimates := func(trials int) []float64 {
		out := make([]float64, 0, 12)
		for i := int64(1); i <= 12; i++ {
			oc := NewOddsCalculator(WithTrials(trials), WithSeed(i*7919), WithWorkers(1))
			out = append(out, float64(oc.Calculate(hole, board, 2)))
		}
		return out
	}
	mean := func(xs []float64) float64 {
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		return sum / float64(len(xs))
	}
	deviation := func(xs []float64, around float64) float64 {
		sum := 0.0
		for _, x := range xs {
			sum += (x - around) * (x - around)
		}
		return math.Sqrt(sum / float64(len(xs)))
	}
	spread := func(xs []float64) float64 {
		lo, hi := xs[0], xs[0]
		for _, x := range xs {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		return hi - lo
	}

	few, many := estimates(100), estimates(2000)
	target := mean(many)

	assert.Less(t, deviation(many, target), deviation(few, target))
	assert.Less(t, spread(many), spread(few))
	assert.InDelta(t, target, mean(few), 8, "both trial counts estimate the same equity")
}
