package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

type Config struct {
	// Server
	Port string
	Env  string

	// AI provider
	AIProvider      string
	GroqAPIKey      string
	GroqBaseURL     string
	GroqVisionModel string
	GroqTestModel   string
	GeminiAPIKey    string
	GeminiModel     string

	// Outbound protection
	AIRatePerMinute    int
	AIRateBurst        int
	BreakerMaxFailures int
	BreakerTimeout     time.Duration

	// Snapshots
	MaxImageEdge int

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int

	// Frontend
	CORSOrigin string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "3000"),
		Env:                getEnvOrDefault("ENV", "development"),
		AIProvider:         strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGroq)),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:        getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqVisionModel:    getEnvOrDefault("GROQ_VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		GroqTestModel:      getEnvOrDefault("GROQ_TEST_MODEL", "llama-3.1-8b-instant"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		AIRatePerMinute:    getEnvAsIntOrDefault("AI_RATE_PER_MINUTE", 30),
		AIRateBurst:        getEnvAsIntOrDefault("AI_RATE_BURST", 5),
		BreakerMaxFailures: getEnvAsIntOrDefault("BREAKER_MAX_FAILURES", 5),
		BreakerTimeout:     getEnvAsDurationOrDefault("BREAKER_TIMEOUT", 30*time.Second),
		MaxImageEdge:       getEnvAsIntOrDefault("MAX_IMAGE_EDGE", 1600),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:            getEnvOrDefault("LOG_FILE", ""),
		LogMaxSize:         getEnvAsIntOrDefault("LOG_MAX_SIZE", 100),
		LogMaxBackups:      getEnvAsIntOrDefault("LOG_MAX_BACKUPS", 3),
		LogMaxAge:          getEnvAsIntOrDefault("LOG_MAX_AGE", 28),
		CORSOrigin:         getEnvOrDefault("CORS_ORIGIN", "http://localhost:5173"),
	}

	return cfg
}

// Verify rejects settings the server cannot start with. A missing API key is
// not one of them: it is reported per request.
func (c *Config) Verify() error {
	switch c.AIProvider {
	case ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("AI_PROVIDER must be %q or %q, got %q", ProviderGroq, ProviderGemini, c.AIProvider)
	}
	if c.AIRatePerMinute <= 0 {
		return fmt.Errorf("AI_RATE_PER_MINUTE must be positive")
	}
	if c.MaxImageEdge < 0 {
		return fmt.Errorf("MAX_IMAGE_EDGE must not be negative")
	}
	return nil
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	if c.AIProvider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.GroqAPIKey
}

// APIKeyEnv names the variable that holds the selected provider's credential.
func (c *Config) APIKeyEnv() string {
	if c.AIProvider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "GROQ_API_KEY"
}

func (c *Config) HasCredential() bool {
	return c.APIKey() != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
