package main

import (
	"fmt"
	"net/http"

	"github.com/evyataryagoni/timebot/internal/assistant"
	"github.com/evyataryagoni/timebot/internal/clock"
	"github.com/evyataryagoni/timebot/internal/config"
	"github.com/evyataryagoni/timebot/internal/geoip"
	"github.com/evyataryagoni/timebot/internal/handler"
	"github.com/evyataryagoni/timebot/internal/imagegen"
	"github.com/evyataryagoni/timebot/internal/limiter"
	"github.com/evyataryagoni/timebot/internal/logger"
	"github.com/evyataryagoni/timebot/internal/metrics"
	"github.com/evyataryagoni/timebot/internal/router"
	"github.com/evyataryagoni/timebot/internal/tools"
)

// @title           timebot API
// @version         1.0
// @description     An LLM agent with geolocation/time tools and a web chat UI
// @termsOfService  http://swagger.io/terms/

// @contact.name   Evyatar Yagoni
// @contact.email  evyatar@example.com

// @license.name  MIT
// @license.url   http://opensource.org/licenses/MIT

// @host      localhost:3000
// @BasePath  /
func main() {
	// Load configuration
	appConfig := config.Load()

	// Initialize components
	appLogger := setupLogger(appConfig)
	metricsCollector := metrics.New()

	rateLimiter := setupRateLimiter(appConfig, appLogger)
	defer rateLimiter.Close()

	// Build the tool chain: resolver -> clock -> tools
	resolver := geoip.NewHTTPResolver(
		appConfig.IPLookupURL,
		appConfig.GeoLookupURL,
		appConfig.HTTPTimeout,
		metricsCollector,
		appLogger,
	)
	clockService := clock.New(resolver, appLogger)
	imageClient := imagegen.NewHTTPClient(appConfig.ImageAPIURL, appConfig.HTTPTimeout, appLogger)
	toolbox := tools.New(clockService, imageClient, metricsCollector, appLogger)

	// Hand the tools to the agent framework
	agentAssistant := setupAssistant(appConfig, toolbox, metricsCollector, appLogger)
	defer agentAssistant.Close()

	// Build application layers
	chatHandler := handler.NewChatHandler(agentAssistant)
	timeHandler := handler.NewTimeHandler(clockService)
	appRouter := router.SetupRouter(chatHandler, timeHandler, rateLimiter, metricsCollector, appLogger)

	// Start server
	startServer(appConfig, appRouter, appLogger)
}

// setupLogger initializes the structured logger
func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	appLogger.Info().Msg("Starting timebot server...")
	appLogger.Info().
		Str("port", appConfig.Port).
		Str("model", appConfig.ModelName).
		Int("max_tool_iterations", appConfig.MaxToolIterations).
		Str("session_backend", appConfig.SessionBackend).
		Str("rate_limiter_type", appConfig.RateLimitType).
		Int("rate_limit", appConfig.RateLimit).
		Int("rate_limit_window", appConfig.RateLimitWindow).
		Str("ip_lookup_url", appConfig.IPLookupURL).
		Str("geo_lookup_url", appConfig.GeoLookupURL).
		Msg("Configuration loaded")

	return appLogger
}

// setupRateLimiter initializes the rate limiter
func setupRateLimiter(appConfig *config.Config, log *logger.Logger) limiter.Limiter {
	// Effective rate: requests per second
	// Example: 10 requests per 5 seconds = 10/5 = 2.0 req/s
	effectiveRate := float64(appConfig.RateLimit) / float64(appConfig.RateLimitWindow)

	rateLimiter, err := limiter.New(limiter.Config{
		Type:              appConfig.RateLimitType,
		RequestsPerSecond: effectiveRate,
		RedisAddr:         appConfig.RedisAddr,
		RedisPassword:     appConfig.RedisPassword,
		RedisDB:           appConfig.RedisDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
	}

	fmt.Printf("✅ Rate limiter initialized (type: %s, limit: %d req per %d sec)\n",
		appConfig.RateLimitType, appConfig.RateLimit, appConfig.RateLimitWindow)

	return rateLimiter
}

// setupAssistant wires the agent framework with the tool set
func setupAssistant(appConfig *config.Config, toolbox *tools.Toolbox, m *metrics.Metrics, log *logger.Logger) *assistant.Assistant {
	agentAssistant, err := assistant.New(appConfig, toolbox.All(), m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize assistant")
	}

	fmt.Printf("✅ Assistant initialized (model: %s, session backend: %s)\n",
		appConfig.ModelName, appConfig.SessionBackend)

	return agentAssistant
}

// startServer starts the HTTP server and blocks
func startServer(appConfig *config.Config, appRouter http.Handler, log *logger.Logger) {
	serverAddr := ":" + appConfig.Port

	log.Info().
		Str("port", appConfig.Port).
		Str("chat_ui", "http://localhost:"+appConfig.Port+"/").
		Str("chat_api", "http://localhost:"+appConfig.Port+"/v1/chat").
		Str("health_check", "http://localhost:"+appConfig.Port+"/health").
		Str("metrics", "http://localhost:"+appConfig.Port+"/metrics").
		Str("swagger", "http://localhost:"+appConfig.Port+"/swagger/index.html").
		Msg("Server is running")

	log.Fatal().Err(http.ListenAndServe(serverAddr, appRouter)).Msg("Server failed")
}
