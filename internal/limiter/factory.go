package limiter

import (
	"fmt"
	"strings"
)

// Config holds configuration for creating a rate limiter.
type Config struct {
	Type              string  // "memory" or "redis"
	RequestsPerSecond float64 // can be fractional, e.g. 0.2 = 1 req per 5 sec

	// Redis-specific config
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New creates a rate limiter based on the configuration.
func New(cfg Config) (Limiter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "memory", "":
		return NewMemoryLimiter(cfg.RequestsPerSecond), nil

	case "redis":
		lim, err := NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RequestsPerSecond)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis limiter: %w", err)
		}
		return lim, nil

	default:
		return nil, fmt.Errorf("unknown rate limiter type: %s (supported: 'memory', 'redis')", cfg.Type)
	}
}

// MockLimiter is a test double with a fixed verdict.
type MockLimiter struct {
	Verdict    bool
	AllowCalls []string
}

// Allow implements the Limiter interface.
func (m *MockLimiter) Allow(key string) bool {
	m.AllowCalls = append(m.AllowCalls, key)
	return m.Verdict
}

// Close implements the Limiter interface.
func (m *MockLimiter) Close() error {
	return nil
}
