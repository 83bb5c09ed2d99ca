package netsync

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MessagesPerSecond: 1, BurstSize: 2, CleanupInterval: time.Minute}, zerolog.Nop())
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "peers are limited independently")
	assert.Equal(t, 2, rl.Len())

	rl.Forget("a")
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MessagesPerSecond: 10, BurstSize: 10, CleanupInterval: time.Hour}, zerolog.Nop())
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, rl.cleanup(10*time.Millisecond))
	assert.Zero(t, rl.Len())
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{MessagesPerSecond: -1}, zerolog.Nop())
	defer rl.Stop()
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("a"))
	}
	rl.Stop()
}
