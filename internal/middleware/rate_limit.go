package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/evyataryagoni/timebot/internal/limiter"
)

// RateLimitMiddleware enforces rate limiting per client IP (returns 429 when
// exceeded). Chat turns fan out into model and tool calls, so one unthrottled
// client can burn through the model budget quickly.
func RateLimitMiddleware(lim limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr

			// Prefer proxy-forwarded headers when present.
			// Priority: X-Real-IP > X-Forwarded-For > RemoteAddr
			if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
				ip = realIP
			} else if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
				ip = forwardedFor
			}

			if !lim.Allow(ip) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
