package engine

import (
	"sync"
	"time"

	"github.com/weedbox/timebank"

	"pocket-poker/models"
)

// ExpireFunc receives the turn that ran out of time.
type ExpireFunc func(seatID string, handNumber int, phase models.Phase)

// TurnClock runs one cancellable countdown for the seat to act.
type TurnClock struct {
	mu       sync.Mutex
	tb       *timebank.TimeBank
	timeout  time.Duration
	onExpire ExpireFunc
}

func NewTurnClock(timeout time.Duration, onExpire ExpireFunc) *TurnClock {
	return &TurnClock{
		tb:       timebank.NewTimeBank(),
		timeout:  timeout,
		onExpire: onExpire,
	}
}

func (tc *TurnClock) Timeout() time.Duration {
	return tc.timeout
}

// Start cancels any running countdown and returns the new deadline.
func (tc *TurnClock) Start(seatID string, handNumber int, phase models.Phase) time.Time {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.tb.Cancel()
	deadline := time.Now().Add(tc.timeout)
	_ = tc.tb.NewTaskWithDeadline(deadline, func(isCancelled bool) {
		if isCancelled {
			return
		}
		go tc.onExpire(seatID, handNumber, phase)
	})
	return deadline
}

func (tc *TurnClock) Stop() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.tb.Cancel()
}
