package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	// Anti-replay window for the X-Timestamp header, in seconds either side
	// of server time.
	TimestampToleranceSeconds int

	// Privacy-budget session parameters.
	SessionTTLSeconds int
	DefaultMaxQueries int
	SessionBackend    string // "memory", "postgres" or "redis"

	PolicyPath string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                  addr,
		PostgresDSN:               os.Getenv("POSTGRES_DSN"),
		LogLevel:                  envDefault("LOG_LEVEL", "info"),
		TimestampToleranceSeconds: envIntDefault("TIMESTAMP_TOLERANCE_SECONDS", 300),
		SessionTTLSeconds:         envIntDefault("SESSION_TTL_SECONDS", 4*60*60),
		DefaultMaxQueries:         envIntDefault("DEFAULT_MAX_QUERIES", 16),
		SessionBackend:            envDefault("SESSION_BACKEND", ""),
		PolicyPath:                os.Getenv("POLICY_PATH"),
		RateLimitRequests:         envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:    envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:       envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:          envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) TimestampTolerance() time.Duration {
	if c.TimestampToleranceSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TimestampToleranceSeconds) * time.Second
}

func (c Config) SessionTTL() time.Duration {
	if c.SessionTTLSeconds <= 0 {
		return 4 * time.Hour
	}
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
