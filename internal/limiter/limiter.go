package limiter

import (
	"sync"
	"time"
)

// Limiter is the interface both rate limiter implementations satisfy.
// The chat endpoint fronts a paid model API, so every request passes
// through one of these before reaching the agent.
type Limiter interface {
	// Allow reports whether a request from the given client key (usually
	// its IP address) should be let through.
	Allow(key string) bool

	// Close cleans up any resources (Redis connections, etc.)
	Close() error
}

// tokenBucket is a classic token bucket for a single client: tokens refill
// at a fixed rate, each request consumes one, an empty bucket means 429.
type tokenBucket struct {
	tokens         float64
	capacity       float64
	refillRate     float64 // tokens per second
	lastRefillTime time.Time
	mu             sync.Mutex
}

func newTokenBucket(rate, capacity float64) *tokenBucket {
	// Fractional rates (e.g. 0.2 req/s) still need to admit the first
	// request, so the bucket never starts below one token.
	return &tokenBucket{
		tokens:         max(capacity, 1.0),
		capacity:       max(capacity, 1.0),
		refillRate:     rate,
		lastRefillTime: time.Now(),
	}
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// refill adds tokens for the elapsed time. Must be called with mu held.
func (tb *tokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.tokens = min(tb.tokens+elapsed*tb.refillRate, tb.capacity)
	tb.lastRefillTime = now
}

// MemoryLimiter keeps one token bucket per client key. Suitable for a
// single-server deployment; use the Redis limiter when running more than
// one instance.
type MemoryLimiter struct {
	buckets     sync.Map // map[string]*tokenBucket
	rate        float64
	capacity    float64
	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter creates an in-memory rate limiter allowing
// requestsPerSecond per client key (fractional rates are fine).
func NewMemoryLimiter(requestsPerSecond float64) *MemoryLimiter {
	return &MemoryLimiter{
		rate:        requestsPerSecond,
		capacity:    requestsPerSecond, // burst up to one second's worth
		lastCleanup: time.Now(),
	}
}

// Allow implements the Limiter interface.
func (rl *MemoryLimiter) Allow(key string) bool {
	bucket := rl.getBucket(key)
	allowed := bucket.allow()
	rl.maybeCleanup()
	return allowed
}

func (rl *MemoryLimiter) getBucket(key string) *tokenBucket {
	if value, ok := rl.buckets.Load(key); ok {
		return value.(*tokenBucket)
	}
	actual, _ := rl.buckets.LoadOrStore(key, newTokenBucket(rl.rate, rl.capacity))
	return actual.(*tokenBucket)
}

// maybeCleanup drops buckets idle for 5+ minutes so the map cannot grow
// without bound. Runs at most every 5 minutes.
func (rl *MemoryLimiter) maybeCleanup() {
	rl.cleanupMu.Lock()
	defer rl.cleanupMu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	threshold := time.Now().Add(-5 * time.Minute)

	rl.buckets.Range(func(key, value interface{}) bool {
		bucket := value.(*tokenBucket)
		bucket.mu.Lock()
		lastAccess := bucket.lastRefillTime
		bucket.mu.Unlock()

		if lastAccess.Before(threshold) {
			rl.buckets.Delete(key)
		}
		return true
	})

	rl.lastCleanup = time.Now()
}

// Close implements the Limiter interface; nothing to release in memory.
func (rl *MemoryLimiter) Close() error {
	return nil
}
