package bot

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocket-poker/models"
)

type submission struct {
	seatID string
	action models.ActionType
}

type submitRecorder struct {
	mu   sync.Mutex
	subs []submission
}

func (r *submitRecorder) submit(seatID string, action models.ActionType, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, submission{seatID, action})
	return nil
}

func (r *submitRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// fixedPolicy always answers with the same decision.
type fixedPolicy struct {
	d     Decision
	err   error
	calls int
	mu    sync.Mutex
}

func (p *fixedPolicy) Decide(context.Context, *models.GameState, *models.Seat) (Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.d, p.err
}

func turnState(seq uint64, seatID string, bot bool) *models.GameState {
	seat := &models.Seat{ID: seatID, IsActive: true, IsBot: bot, Chips: 100}
	return &models.GameState{
		Phase:         models.PhasePreFlop,
		HandNumber:    1,
		Seats:         []*models.Seat{seat},
		CurrentSeatID: seatID,
		MinBet:        20,
		Sequence:      seq,
	}
}

func TestRunner_PlaysBotsThroughAHand(t *testing.T) {
	e := newBotEngine(t, 3, 12)
	r := NewRunner(NewHeuristicPolicy(rand.New(rand.NewSource(4))), e.ApplyAction, WithThinkingDelay(0))
	t.Cleanup(r.Close)
	e.OnStateChanged(r.OnStateChanged)

	require.NoError(t, e.StartHand())
	assert.Eventually(t, func() bool {
		return e.Snapshot().Phase == models.PhaseShowdown
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunner_IgnoresHumansAndStaleSnapshots(t *testing.T) {
	rec := &submitRecorder{}
	policy := &fixedPolicy{d: Decision{Action: models.ActionCall}}
	r := NewRunner(policy, rec.submit, WithThinkingDelay(0))
	t.Cleanup(r.Close)

	r.OnStateChanged(turnState(5, "human", false))
	r.OnStateChanged(turnState(4, "bot", true))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.count())

	r.OnStateChanged(turnState(6, "bot", true))
	// same turn again, e.g. an odds refresh
	r.OnStateChanged(turnState(7, "bot", true))
	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestRunner_NewTurnCancelsPendingDelay(t *testing.T) {
	rec := &submitRecorder{}
	r := NewRunner(&fixedPolicy{d: Decision{Action: models.ActionCall}}, rec.submit,
		WithThinkingDelay(100*time.Millisecond))
	t.Cleanup(r.Close)

	r.OnStateChanged(turnState(1, "bot", true))
	r.OnStateChanged(turnState(2, "human", false))
	time.Sleep(250 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestRunner_LLMSeatsUseLLMPolicy(t *testing.T) {
	rec := &submitRecorder{}
	heuristic := &fixedPolicy{d: Decision{Action: models.ActionCall}}
	llm := &fixedPolicy{d: Decision{Action: models.ActionFold}, err: ErrMalformedReply}
	r := NewRunner(heuristic, rec.submit, WithThinkingDelay(0), WithLLMPolicy(llm))
	t.Cleanup(r.Close)

	st := turnState(1, "bot", true)
	st.Seats[0].UseAI = true
	r.OnStateChanged(st)

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, llm.calls)
	assert.Zero(t, heuristic.calls)
	assert.Equal(t, models.ActionFold, rec.subs[0].action)
}

func TestRunner_CloseDiscardsPending(t *testing.T) {
	rec := &submitRecorder{}
	r := NewRunner(&fixedPolicy{d: Decision{Action: models.ActionCall}}, rec.submit,
		WithThinkingDelay(50*time.Millisecond))

	r.OnStateChanged(turnState(1, "bot", true))
	r.Close()
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, rec.count())
}
