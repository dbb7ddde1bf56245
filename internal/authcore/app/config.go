package app

import (
	"os"
	"strconv"
	"time"

	"github.com/swiftmeds/authcore/pkg/httpx"
	"github.com/swiftmeds/authcore/pkg/jwtx"
)

type Config struct {
	Secret string // Required: HMAC signing secret for tokens
	Pepper string // Optional: secret mixed into every password hash

	AccessTTL  time.Duration // Access token lifetime (default: 30m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h)

	// Per-endpoint-class rate ceilings. Every limit flows from here so a
	// deployment can tune them without code changes.
	LoginLimit    httpx.RateLimitConfig
	RegisterLimit httpx.RateLimitConfig
	ResetLimit    httpx.RateLimitConfig
	GeneralLimit  httpx.RateLimitConfig

	RateLimitStore string // Rate limit backend (local, redis) (default: local)
	RedisAddr      string // Redis address, required when RateLimitStore is redis

	DatabaseFile string // Path to SQLite database file (default: ./authcore.db)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Blacklist/reset-token prune interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Secret: os.Getenv("AUTH_SECRET"),
		Pepper: os.Getenv("AUTH_PEPPER"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTTL),

		LoginLimit:    limitFromEnv("RATE_LIMIT_LOGIN", 5),
		RegisterLimit: limitFromEnv("RATE_LIMIT_REGISTER", 3),
		ResetLimit:    limitFromEnv("RATE_LIMIT_RESET", 1),
		GeneralLimit:  limitFromEnv("RATE_LIMIT_GENERAL", 100),

		RateLimitStore: getEnvOrDefault("RATE_LIMIT_STORE", "local"),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "authcore.db"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// limitFromEnv reads a requests-per-minute ceiling for one endpoint class.
func limitFromEnv(key string, defaultPerMinute int) httpx.RateLimitConfig {
	return httpx.RateLimitConfig{
		Requests: getEnvIntOrDefault(key, defaultPerMinute),
		Window:   time.Minute,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
