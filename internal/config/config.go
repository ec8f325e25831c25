package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Everything is read from environment variables so the same binary runs
// locally (with a .env file) and in a container.
type Config struct {
	// Server configuration
	Port string

	// Model endpoint configuration, consumed by the agent framework.
	// MODEL_BASE_URL / MODEL_API_KEY are optional: when empty the framework
	// falls back to the provider defaults (OPENAI_BASE_URL / OPENAI_API_KEY).
	ModelName    string
	ModelBaseURL string
	ModelAPIKey  string

	// MaxToolIterations bounds the agent's reasoning steps per turn.
	// Enforcement lives entirely inside the agent framework.
	MaxToolIterations int

	// External lookup endpoints
	IPLookupURL  string // "what is my IP" service
	GeoLookupURL string // ip-api.com style geolocation service (base URL)
	ImageAPIURL  string // image-generation passthrough (empty = disabled)

	// HTTPTimeout applies to outbound resolver and image-generation calls.
	HTTPTimeout time.Duration

	// Session backend for conversation history: "memory" or "redis"
	SessionBackend string

	// Rate limiting
	RateLimitType   string // "memory" or "redis"
	RateLimit       int    // number of requests allowed
	RateLimitWindow int    // time window in seconds

	// Redis configuration (session backend and/or rate limiter)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	// Load .env file if it exists (for local development).
	// In production/Docker, environment variables are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Port: getEnv("PORT", "3000"),

		ModelName:         getEnv("MODEL_NAME", "deepseek-chat"),
		ModelBaseURL:      getEnv("MODEL_BASE_URL", ""),
		ModelAPIKey:       getEnv("MODEL_API_KEY", ""),
		MaxToolIterations: getEnvAsInt("MAX_TOOL_ITERATIONS", 6),

		IPLookupURL:  getEnv("IP_LOOKUP_URL", "https://api.ipify.org?format=json"),
		GeoLookupURL: getEnv("GEO_LOOKUP_URL", "http://ip-api.com"),
		ImageAPIURL:  getEnv("IMAGE_API_URL", ""),
		HTTPTimeout:  time.Duration(getEnvAsInt("HTTP_TIMEOUT", 10)) * time.Second,

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),

		// Rate limiting (default: memory, 5 requests per 1 second)
		RateLimitType:   getEnv("RATE_LIMITER_TYPE", "memory"),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 5),
		RateLimitWindow: getEnvAsInt("RATE_LIMIT_WINDOW", 1),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
	}
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer.
// Returns default if not set or invalid.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
