package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pocket-poker/models"
)

type expiryRecorder struct {
	mu    sync.Mutex
	fired []string
}

func (r *expiryRecorder) record(seatID string, _ int, _ models.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, seatID)
}

func (r *expiryRecorder) seats() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...)
}

func TestTurnClock_Fires(t *testing.T) {
	rec := &expiryRecorder{}
	clock := NewTurnClock(50*time.Millisecond, rec.record)

	deadline := clock.Start("A", 1, models.PhasePreFlop)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 20*time.Millisecond)

	assert.Eventually(t, func() bool { return len(rec.seats()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"A"}, rec.seats())
}

func TestTurnClock_RestartCancelsPrevious(t *testing.T) {
	rec := &expiryRecorder{}
	clock := NewTurnClock(80*time.Millisecond, rec.record)

	clock.Start("A", 1, models.PhasePreFlop)
	clock.Start("B", 1, models.PhasePreFlop)

	assert.Eventually(t, func() bool { return len(rec.seats()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"B"}, rec.seats())
}

func TestTurnClock_Stop(t *testing.T) {
	rec := &expiryRecorder{}
	clock := NewTurnClock(30*time.Millisecond, rec.record)

	clock.Start("A", 1, models.PhasePreFlop)
	clock.Stop()
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.seats())
}
