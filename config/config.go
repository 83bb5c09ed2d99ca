package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	// Server configuration
	ListenAddr     string
	TCPAddr        string
	AllowedOrigins []string
	Environment    string

	// Logging
	LogLevel  string
	LogPretty bool

	// Redis relay
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Hand history
	HistoryDriver string
	HistoryDSN    string

	// Bots
	GeminiAPIKey  string
	GeminiModel   string
	BotDelay      time.Duration
	DecisionLimit time.Duration

	// Invite tokens
	InviteSecret string
	InviteTTL    time.Duration
}

// Load reads configuration from the environment, after loading a .env file
// if one exists.
func Load() Config {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")
	return Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		TCPAddr:        getEnv("TCP_ADDR", ""),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),
		Environment:    env,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getBool("LOG_PRETTY", env == "development"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		HistoryDriver: getEnv("HISTORY_DRIVER", "sqlite"),
		HistoryDSN:    getEnv("HISTORY_DSN", "pocket-poker.db"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		BotDelay:      getDuration("BOT_THINKING_DELAY", 1500*time.Millisecond),
		DecisionLimit: getDuration("BOT_DECISION_TIMEOUT", 10*time.Second),

		InviteSecret: getEnv("INVITE_SECRET", ""),
		InviteTTL:    getDuration("INVITE_TTL", 2*time.Hour),
	}
}

// IsProduction reports whether ENV is production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

// getList splits a comma separated variable, dropping blanks.
func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
