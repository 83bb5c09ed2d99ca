package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/weedbox/timebank"

	"pocket-poker/engine"
	"pocket-poker/models"
)

const (
	DefaultThinkingDelay   = 1500 * time.Millisecond
	DefaultDecisionTimeout = 10 * time.Second
)

// SubmitFunc hands a bot's action to whoever owns the engine.
type SubmitFunc func(seatID string, action models.ActionType, amount int) error

type turnKey struct {
	hand   int
	phase  models.Phase
	seatID string
}

// Runner watches state snapshots and plays every bot seat whose turn comes up.
type Runner struct {
	mu        sync.Mutex
	tb        *timebank.TimeBank
	heuristic Policy
	llm       Policy
	submit    SubmitFunc
	delay     time.Duration
	timeout   time.Duration
	pending   turnKey
	lastSeq   uint64
	closed    bool
	logger    zerolog.Logger
}

type RunnerOption func(*Runner)

func WithThinkingDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.delay = d
	}
}

func WithDecisionTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLLMPolicy routes seats with UseAI set to p.
func WithLLMPolicy(p Policy) RunnerOption {
	return func(r *Runner) {
		r.llm = p
	}
}

func WithRunnerLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger.With().Str("component", "bot").Logger()
	}
}

func NewRunner(heuristic Policy, submit SubmitFunc, opts ...RunnerOption) *Runner {
	r := &Runner{
		tb:        timebank.NewTimeBank(),
		heuristic: heuristic,
		submit:    submit,
		delay:     DefaultThinkingDelay,
		timeout:   DefaultDecisionTimeout,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnStateChanged is meant to be registered with GameEngine.OnStateChanged.
// Snapshots older than the last one seen are ignored.
func (r *Runner) OnStateChanged(state *models.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || state.Sequence <= r.lastSeq {
		return
	}
	r.lastSeq = state.Sequence

	seat := state.SeatByID(state.CurrentSeatID)
	if !state.Phase.IsBetting() || seat == nil || !seat.IsBot {
		if r.pending != (turnKey{}) {
			r.tb.Cancel()
			r.pending = turnKey{}
		}
		return
	}

	key := turnKey{hand: state.HandNumber, phase: state.Phase, seatID: seat.ID}
	if key == r.pending {
		return
	}
	r.tb.Cancel()
	r.pending = key

	run := func() { r.act(key, state, seat) }
	if r.delay <= 0 {
		go run()
		return
	}
	if err := r.tb.NewTask(r.delay, func(isCancelled bool) {
		if isCancelled {
			return
		}
		go run()
	}); err != nil {
		r.logger.Error().Err(err).Str("seat", seat.ID).Msg("failed to schedule bot turn")
	}
}

func (r *Runner) act(key turnKey, state *models.GameState, seat *models.Seat) {
	policy := r.heuristic
	if seat.UseAI && r.llm != nil {
		policy = r.llm
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	d, err := policy.Decide(ctx, state, seat)
	if err != nil {
		r.logger.Warn().Err(err).Str("seat", seat.ID).Msg("bot policy failed")
		if d.Action == "" {
			d = Fallback(state, seat)
		}
	}

	r.mu.Lock()
	stale := r.closed || r.pending != key
	r.mu.Unlock()
	if stale {
		r.logger.Debug().Str("seat", seat.ID).Msg("discarding stale bot decision")
		return
	}

	err = r.submit(seat.ID, d.Action, d.Amount)
	if errors.Is(err, engine.ErrIllegalAction) && !errors.Is(err, engine.ErrNotYourTurn) {
		r.logger.Warn().Err(err).Str("seat", seat.ID).Str("action", string(d.Action)).Msg("bot action rejected, using fallback")
		fb := Fallback(state, seat)
		err = r.submit(seat.ID, fb.Action, fb.Amount)
	}
	if err != nil {
		r.logger.Debug().Err(err).Str("seat", seat.ID).Msg("bot action not applied")
	}
}

// Close cancels any pending turn. Decisions in flight are discarded.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.tb.Cancel()
	r.pending = turnKey{}
}
