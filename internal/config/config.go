// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "json" or "text"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Upstream data providers
	RugcheckURL    string
	BirdeyeURL     string
	BirdeyeAPIKey  string
	DexscreenerURL string
	HeliusURL      string
	HeliusAPIKey   string

	// Outbound call behavior
	SourceTimeout    time.Duration // per-source deadline inside the aggregator
	FetchTimeout     time.Duration // per-attempt deadline for the retrying fetcher
	FetchMaxRetries  int
	FetchBackoffBase time.Duration

	// Degraded-flag policy: whether a primary (rugcheck) failure alone
	// marks the response degraded.
	PrimaryAffectsDegraded bool

	// Inbound rate limiting
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Observability
	OTLPEndpoint string // empty disables tracing
}

// Defaults
const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultRugcheckURL    = "https://api.rugcheck.xyz/v1"
	DefaultBirdeyeURL     = "https://public-api.birdeye.so"
	DefaultDexscreenerURL = "https://api.dexscreener.com"
	DefaultHeliusURL      = "https://api.helius.xyz/v0"

	DefaultSourceTimeoutMs   = 4000
	DefaultFetchTimeoutMs    = 5000
	DefaultFetchMaxRetries   = 2
	DefaultFetchBackoffMs    = 200
	DefaultRateLimitMax      = 60
	DefaultRateLimitWindowMs = 60000
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", DefaultPort),
		Env:       getEnv("ENV", DefaultEnv),
		LogLevel:  getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DatabaseURL: os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set

		RugcheckURL:    getEnv("RUGCHECK_URL", DefaultRugcheckURL),
		BirdeyeURL:     getEnv("BIRDEYE_URL", DefaultBirdeyeURL),
		BirdeyeAPIKey:  os.Getenv("BIRDEYE_API_KEY"),
		DexscreenerURL: getEnv("DEXSCREENER_URL", DefaultDexscreenerURL),
		HeliusURL:      getEnv("HELIUS_URL", DefaultHeliusURL),
		HeliusAPIKey:   os.Getenv("HELIUS_API_KEY"),

		SourceTimeout:    getEnvDurationMs("SOURCE_TIMEOUT_MS", DefaultSourceTimeoutMs),
		FetchTimeout:     getEnvDurationMs("FETCH_TIMEOUT_MS", DefaultFetchTimeoutMs),
		FetchMaxRetries:  int(getEnvInt64("FETCH_MAX_RETRIES", DefaultFetchMaxRetries)),
		FetchBackoffBase: getEnvDurationMs("FETCH_BACKOFF_MS", DefaultFetchBackoffMs),

		PrimaryAffectsDegraded: getEnvBool("PRIMARY_AFFECTS_DEGRADED", false),

		RateLimitMax:    int(getEnvInt64("RATE_LIMIT_MAX", DefaultRateLimitMax)),
		RateLimitWindow: getEnvDurationMs("RATE_LIMIT_WINDOW_MS", DefaultRateLimitWindowMs),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"RUGCHECK_URL":    c.RugcheckURL,
		"BIRDEYE_URL":     c.BirdeyeURL,
		"DEXSCREENER_URL": c.DexscreenerURL,
		"HELIUS_URL":      c.HeliusURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}

	if c.SourceTimeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT_MS must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_MS must be positive")
	}
	if c.FetchMaxRetries < 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES must not be negative")
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_MS must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationMs(key string, defaultMs int64) time.Duration {
	return time.Duration(getEnvInt64(key, defaultMs)) * time.Millisecond
}
