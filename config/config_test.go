package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LISTEN_ADDR", "ALLOWED_ORIGINS", "HISTORY_DRIVER", "BOT_THINKING_DELAY", "ENV", "LOG_PRETTY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.HistoryDriver)
	assert.Equal(t, 1500*time.Millisecond, cfg.BotDelay)
	assert.True(t, cfg.LogPretty, "pretty logs in development")
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("BOT_THINKING_DELAY", "250ms")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_PRETTY", "")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.BotDelay)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.LogPretty)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "three")
	t.Setenv("BOT_THINKING_DELAY", "soon")
	t.Setenv("ALLOWED_ORIGINS", " , ")

	cfg := Load()
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 1500*time.Millisecond, cfg.BotDelay)
	assert.Len(t, cfg.AllowedOrigins, 2)
}
