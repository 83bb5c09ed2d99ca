package netsync

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	MessagesPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
}

// DefaultRateLimiterConfig allows five messages a second per peer with bursts of ten.
var DefaultRateLimiterConfig = RateLimiterConfig{
	MessagesPerSecond: 5.0,
	BurstSize:         10,
	CleanupInterval:   5 * time.Minute,
}

type peerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per peer and drops idle buckets.
type RateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*peerLimiter
	config      RateLimiterConfig
	stopCleanup chan struct{}
	stopOnce    sync.Once
	logger      zerolog.Logger
}

func NewRateLimiter(config RateLimiterConfig, logger zerolog.Logger) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultRateLimiterConfig.CleanupInterval
	}
	rl := &RateLimiter{
		limiters:    make(map[string]*peerLimiter),
		config:      config,
		stopCleanup: make(chan struct{}),
		logger:      logger.With().Str("component", "ratelimit").Logger(),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether peerID may send another message now.
// A non-positive rate disables limiting.
func (rl *RateLimiter) Allow(peerID string) bool {
	if rl.config.MessagesPerSecond <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	pl, exists := rl.limiters[peerID]
	if !exists {
		pl = &peerLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.config.MessagesPerSecond), rl.config.BurstSize),
		}
		rl.limiters[peerID] = pl
	}
	pl.lastSeen = time.Now()

	if !pl.limiter.Allow() {
		rl.logger.Warn().Str("peer", peerID).Msg("inbound rate limit exceeded")
		return false
	}
	return true
}

func (rl *RateLimiter) Forget(peerID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, peerID)
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(rl.config.CleanupInterval)
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for id, pl := range rl.limiters {
		if pl.lastSeen.Before(cutoff) {
			delete(rl.limiters, id)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug().Int("removed", removed).Msg("cleaned up idle rate limiters")
	}
	return removed
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}
