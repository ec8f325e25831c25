package limiter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements distributed rate limiting on Redis so the limit
// holds across multiple server instances.
//
// Counters live in windowed keys ("ratelimit:{key}:{window}") that expire on
// their own; a Lua script keeps increment-and-expire atomic.
type RedisLimiter struct {
	client         *redis.Client
	ctx            context.Context
	requestsPerSec float64
	windowSize     time.Duration
}

// allowScript increments the window counter and sets its expiry on first use.
const allowScript = `
	local key = KEYS[1]
	local ttl = tonumber(ARGV[1])

	local current = redis.call('INCR', key)
	if current == 1 then
		redis.call('EXPIRE', key, ttl)
	end
	return current
`

// NewRedisLimiter creates a Redis-backed rate limiter.
//
// Parameters:
//   - addr: Redis server address (e.g. "localhost:6379")
//   - password: Redis password (empty string if none)
//   - db: Redis database number
//   - requestsPerSecond: allowed requests per second per client key
func NewRedisLimiter(addr, password string, db int, requestsPerSecond float64) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
	}

	// Fractional rates get a window long enough to admit one request:
	// 0.2 req/s becomes a 5-second window.
	windowSize := time.Second
	if requestsPerSecond < 1.0 {
		windowSize = time.Duration(float64(time.Second) / requestsPerSecond)
	}

	return &RedisLimiter{
		client:         client,
		ctx:            ctx,
		requestsPerSec: requestsPerSecond,
		windowSize:     windowSize,
	}, nil
}

// Allow implements the Limiter interface.
// On Redis errors it fails open rather than blocking legitimate traffic.
func (rl *RedisLimiter) Allow(key string) bool {
	now := time.Now()
	windowSeconds := int64(rl.windowSize.Seconds())
	window := now.Unix() / windowSeconds
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	result, err := rl.client.Eval(rl.ctx, allowScript, []string{redisKey}, windowSeconds*2).Result()
	if err != nil {
		return true
	}

	count, ok := result.(int64)
	if !ok {
		return true
	}

	limit := int64(math.Ceil(rl.requestsPerSec * rl.windowSize.Seconds()))
	return count <= limit
}

// Close closes the Redis connection.
func (rl *RedisLimiter) Close() error {
	if rl.client != nil {
		return rl.client.Close()
	}
	return nil
}
