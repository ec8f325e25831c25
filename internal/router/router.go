package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/evyataryagoni/timebot/docs" // Swagger docs
	"github.com/evyataryagoni/timebot/internal/handler"
	"github.com/evyataryagoni/timebot/internal/limiter"
	"github.com/evyataryagoni/timebot/internal/logger"
	"github.com/evyataryagoni/timebot/internal/metrics"
	custommiddleware "github.com/evyataryagoni/timebot/internal/middleware"
	v1 "github.com/evyataryagoni/timebot/internal/router/v1"
)

// SetupRouter creates and configures the Chi router with all middleware and
// routes. The chat page, the chat API and the direct tool endpoints share
// the same middleware chain.
func SetupRouter(chatHandler *handler.ChatHandler, timeHandler *handler.TimeHandler, rateLimiter limiter.Limiter, m *metrics.Metrics, log *logger.Logger) chi.Router {
	r := chi.NewRouter()

	// Order matters: RequestID first, then logging, then rate limiting.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.LoggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.RateLimitMiddleware(rateLimiter))
	r.Use(custommiddleware.MetricsMiddleware(m))

	// Mount v1 API routes under /v1 prefix
	r.Mount("/v1", v1.SetupRoutes(chatHandler, timeHandler))

	// Embedded web chat UI
	r.Get("/", handler.ChatPage)

	// Health check endpoint - used by load balancers and monitoring
	r.Get("/health", healthCheckHandler)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI - API documentation
	// Access at: http://localhost:3000/swagger/index.html
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// healthCheckHandler returns 200 OK if the service is running.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
