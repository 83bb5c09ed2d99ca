package engine

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/paulhankin/poker"
	"github.com/rs/zerolog"

	"pocket-poker/models"
)

const DefaultOddsTrials = 1000

// OddsCalculator estimates win probability by Monte Carlo simulation.
type OddsCalculator struct {
	trials  int
	workers int
	seed    int64
	seeded  bool
	variant models.Variant
	logger  zerolog.Logger
}

type OddsOption func(*OddsCalculator)

func WithTrials(n int) OddsOption {
	return func(oc *OddsCalculator) {
		if n > 0 {
			oc.trials = n
		}
	}
}

// WithSeed makes every calculation reproducible.
func WithSeed(seed int64) OddsOption {
	return func(oc *OddsCalculator) {
		oc.seed = seed
		oc.seeded = true
	}
}

func WithWorkers(n int) OddsOption {
	return func(oc *OddsCalculator) {
		if n > 0 {
			oc.workers = n
		}
	}
}

func WithVariant(v models.Variant) OddsOption {
	return func(oc *OddsCalculator) {
		oc.variant = v
	}
}

func WithOddsLogger(logger zerolog.Logger) OddsOption {
	return func(oc *OddsCalculator) {
		oc.logger = logger
	}
}

func NewOddsCalculator(opts ...OddsOption) *OddsCalculator {
	oc := &OddsCalculator{
		trials:  DefaultOddsTrials,
		workers: 1,
		variant: models.Standard,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(oc)
	}
	return oc
}

// Calculate returns the percentage (0-100) of simulated runouts in which no
// opponent strictly beats the given hole cards.
func (oc *OddsCalculator) Calculate(hole, board []models.Card, activePlayers int) int {
	if len(hole) != 2 || len(board) > 5 {
		return 0
	}

	known := make(map[models.Card]bool, len(hole)+len(board))
	for _, c := range hole {
		known[c] = true
	}
	for _, c := range board {
		known[c] = true
	}
	var pool []poker.Card
	for _, c := range models.FullSet(oc.variant) {
		if known[c] {
			continue
		}
		pc, err := toPokerCard(c)
		if err != nil {
			return 0
		}
		pool = append(pool, pc)
	}

	heroKnown, err := toPokerCards(append(append([]models.Card(nil), hole...), board...))
	if err != nil {
		return 0
	}

	opponents := activePlayers - 1
	if opponents < 0 {
		opponents = 0
	}
	missing := 5 - len(board)
	if need := missing + 2*opponents; need > len(pool) {
		opponents = (len(pool) - missing) / 2
		oc.logger.Warn().Int("activePlayers", activePlayers).Int("opponents", opponents).Msg("too many opponents for deck, capping")
	}

	workers := oc.workers
	if workers > oc.trials {
		workers = oc.trials
	}
	baseSeed := oc.seed
	if !oc.seeded {
		baseSeed = time.Now().UnixNano()
	}

	wins := make([]int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		n := oc.trials / workers
		if w < oc.trials%workers {
			n++
		}
		wg.Add(1)
		go func(w, n int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(baseSeed + int64(w)))
			wins[w] = simulate(rng, pool, heroKnown, missing, opponents, n)
		}(w, n)
	}
	wg.Wait()

	total := 0
	for _, n := range wins {
		total += n
	}
	return int(math.Round(float64(total) / float64(oc.trials) * 100))
}

// CalculateAsync runs Calculate off the caller's goroutine. The channel
// yields one value, or closes without one if ctx ends first.
func (oc *OddsCalculator) CalculateAsync(ctx context.Context, hole, board []models.Card, activePlayers int) <-chan int {
	out := make(chan int, 1)
	go func() {
		defer close(out)
		odds := oc.Calculate(hole, board, activePlayers)
		select {
		case <-ctx.Done():
		case out <- odds:
		}
	}()
	return out
}

func simulate(rng *rand.Rand, pool, heroKnown []poker.Card, missing, opponents, trials int) int {
	deck := make([]poker.Card, len(pool))
	need := missing + 2*opponents
	boardLen := len(heroKnown) - 2

	var hero, villain [7]poker.Card
	wins := 0
	for t := 0; t < trials; t++ {
		copy(deck, pool)
		// partial Fisher-Yates, only the cards we draw get shuffled
		for i := 0; i < need; i++ {
			j := i + rng.Intn(len(deck)-i)
			deck[i], deck[j] = deck[j], deck[i]
		}

		copy(hero[:], heroKnown)
		copy(hero[len(heroKnown):], deck[:missing])
		heroScore := poker.Eval7(&hero)

		copy(villain[2:], hero[2:2+boardLen+missing])
		won := true
		for o := 0; o < opponents; o++ {
			villain[0] = deck[missing+2*o]
			villain[1] = deck[missing+2*o+1]
			if poker.Eval7(&villain) > heroScore {
				won = false
				break
			}
		}
		if won {
			wins++
		}
	}
	return wins
}
