package limiter

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// TestMemoryLimiter_BasicRateLimit tests the token bucket end to end
func TestMemoryLimiter_BasicRateLimit(t *testing.T) {
	// 5 requests per second, so a burst of 5 fits and the 6th does not
	limiter := NewMemoryLimiter(5)
	defer limiter.Close()

	key := "192.168.1.1"

	for i := 0; i < 5; i++ {
		if !limiter.Allow(key) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if limiter.Allow(key) {
		t.Error("Request 6 should be rate limited")
	}

	// Wait for refill (1.1 seconds to be safe)
	time.Sleep(1100 * time.Millisecond)

	if !limiter.Allow(key) {
		t.Error("Request should be allowed after refill")
	}
}

// TestMemoryLimiter_PerClientIsolation tests that client keys get separate buckets
func TestMemoryLimiter_PerClientIsolation(t *testing.T) {
	limiter := NewMemoryLimiter(3)
	defer limiter.Close()

	key1 := "192.168.1.1"
	key2 := "192.168.1.2"

	// Drain key1's bucket
	for i := 0; i < 3; i++ {
		if !limiter.Allow(key1) {
			t.Errorf("Request %d for key1 should be allowed", i+1)
		}
	}
	if limiter.Allow(key1) {
		t.Error("key1 should be rate limited")
	}

	// key2 has its own bucket and is unaffected
	for i := 0; i < 3; i++ {
		if !limiter.Allow(key2) {
			t.Errorf("Request %d for key2 should be allowed", i+1)
		}
	}
	if limiter.Allow(key2) {
		t.Error("key2 should be rate limited")
	}
}

// TestMemoryLimiter_FractionalRate tests that fractional rates still admit
// the first request. The default chat limit is below 1 req/s, so this is
// the configuration the server actually runs with.
func TestMemoryLimiter_FractionalRate(t *testing.T) {
	limiter := NewMemoryLimiter(0.2) // 1 request per 5 seconds
	defer limiter.Close()

	key := "192.168.1.1"

	if !limiter.Allow(key) {
		t.Error("First request should be allowed even with a fractional rate")
	}
	if limiter.Allow(key) {
		t.Error("Second request should be rate limited")
	}
}

// TestMemoryLimiter_Concurrency tests thread safety under parallel load
func TestMemoryLimiter_Concurrency(t *testing.T) {
	limiter := NewMemoryLimiter(100)
	defer limiter.Close()

	key := "192.168.1.1"
	allowedCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Spawn 200 goroutines (double the limit); only ~100 should get through
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(key) {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if allowedCount < 95 || allowedCount > 105 {
		t.Errorf("Expected ~100 allowed requests, got %d", allowedCount)
	}
}

// TestMemoryLimiter_TokenRefill tests that tokens come back over time
func TestMemoryLimiter_TokenRefill(t *testing.T) {
	limiter := NewMemoryLimiter(10)
	defer limiter.Close()

	key := "192.168.1.1"

	for i := 0; i < 10; i++ {
		limiter.Allow(key)
	}
	if limiter.Allow(key) {
		t.Error("Should be rate limited after using all tokens")
	}

	// Wait for partial refill (0.5 seconds = ~5 tokens)
	time.Sleep(500 * time.Millisecond)

	allowedCount := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow(key) {
			allowedCount++
		}
	}

	if allowedCount < 4 || allowedCount > 6 {
		t.Errorf("Expected ~5 allowed requests after 0.5s refill, got %d", allowedCount)
	}
}

// TestRedisLimiter_BasicRateLimit tests the Redis limiter against miniredis
func TestRedisLimiter_BasicRateLimit(t *testing.T) {
	server := miniredis.RunT(t)

	limiter, err := NewRedisLimiter(server.Addr(), "", 0, 2)
	if err != nil {
		t.Fatalf("NewRedisLimiter() error = %v", err)
	}
	defer limiter.Close()

	key := "192.168.1.1"

	// Align to the start of a window so all three calls land in the same one
	time.Sleep(time.Until(time.Now().Truncate(time.Second).Add(time.Second)))

	// 2 req/s means two requests fit inside one window
	if !limiter.Allow(key) {
		t.Error("Request 1 should be allowed")
	}
	if !limiter.Allow(key) {
		t.Error("Request 2 should be allowed")
	}
	if limiter.Allow(key) {
		t.Error("Request 3 should be rate limited")
	}

	// A different client key counts in its own windowed key
	if !limiter.Allow("192.168.1.2") {
		t.Error("Other client should be allowed")
	}
}

// TestRedisLimiter_FailsOpen tests that Redis outages never block traffic
func TestRedisLimiter_FailsOpen(t *testing.T) {
	server := miniredis.RunT(t)

	limiter, err := NewRedisLimiter(server.Addr(), "", 0, 1)
	if err != nil {
		t.Fatalf("NewRedisLimiter() error = %v", err)
	}
	defer limiter.Close()

	// Kill the backend; every request should now pass through
	server.Close()

	for i := 0; i < 5; i++ {
		if !limiter.Allow("192.168.1.1") {
			t.Errorf("Request %d should be allowed when Redis is down", i+1)
		}
	}
}

// TestRedisLimiter_ConnectionError tests constructor failure on a dead address
func TestRedisLimiter_ConnectionError(t *testing.T) {
	_, err := NewRedisLimiter("127.0.0.1:1", "", 0, 1)
	if err == nil {
		t.Error("Expected error when Redis is unreachable")
	}
}

// TestLimiterInterface tests that both implementations satisfy Limiter
func TestLimiterInterface(t *testing.T) {
	var _ Limiter = (*MemoryLimiter)(nil)
	var _ Limiter = (*RedisLimiter)(nil)
	var _ Limiter = (*MockLimiter)(nil)
}

// TestNew_Memory tests the factory for the in-memory limiter
func TestNew_Memory(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "explicit memory type",
			cfg: Config{
				Type:              "memory",
				RequestsPerSecond: 10,
			},
		},
		{
			name: "uppercase memory type",
			cfg: Config{
				Type:              "MEMORY",
				RequestsPerSecond: 10,
			},
		},
		{
			name: "empty type defaults to memory",
			cfg: Config{
				Type:              "",
				RequestsPerSecond: 10,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(tt.cfg)
			if err != nil {
				t.Errorf("New() error = %v", err)
				return
			}
			defer limiter.Close()

			if !limiter.Allow("192.168.1.1") {
				t.Error("First request should be allowed")
			}
		})
	}
}

// TestNew_Redis tests the factory against miniredis
func TestNew_Redis(t *testing.T) {
	server := miniredis.RunT(t)

	limiter, err := New(Config{
		Type:              "redis",
		RequestsPerSecond: 10,
		RedisAddr:         server.Addr(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer limiter.Close()

	if !limiter.Allow("192.168.1.1") {
		t.Error("First request should be allowed")
	}
}

// TestNew_InvalidType tests the factory with an unknown type
func TestNew_InvalidType(t *testing.T) {
	_, err := New(Config{
		Type:              "invalid",
		RequestsPerSecond: 10,
	})
	if err == nil {
		t.Error("Expected error for invalid limiter type")
	}
}

// BenchmarkMemoryLimiter_Allow benchmarks the Allow method
func BenchmarkMemoryLimiter_Allow(b *testing.B) {
	limiter := NewMemoryLimiter(1000000) // High limit so we don't hit it
	defer limiter.Close()

	key := "192.168.1.1"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow(key)
	}
}
