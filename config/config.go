package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Port string

	// Quote resolution settings
	MaxParallel   int
	MaxRetries    int
	BaseDelay     time.Duration
	ThrottleEvery int
	ThrottlePause time.Duration
	QuoteTTL      time.Duration

	// SearchURL overrides the Yahoo symbol-search endpoint (for testing)
	SearchURL string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first, if present.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		SearchURL:     os.Getenv("YAHOO_SEARCH_URL"),
		BaseDelay:     getEnvDuration("QUOTE_BASE_DELAY", 500*time.Millisecond),
		ThrottlePause: getEnvDuration("QUOTE_THROTTLE_PAUSE", time.Second),
		QuoteTTL:      getEnvDuration("QUOTE_CACHE_TTL", 5*time.Minute),
	}

	var err error
	if cfg.MaxParallel, err = getEnvInt("QUOTE_MAX_PARALLEL", 4); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getEnvInt("QUOTE_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.ThrottleEvery, err = getEnvInt("QUOTE_THROTTLE_EVERY", 20); err != nil {
		return nil, err
	}

	if cfg.MaxParallel < 1 {
		return nil, fmt.Errorf("QUOTE_MAX_PARALLEL must be >= 1, got %d", cfg.MaxParallel)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("QUOTE_MAX_RETRIES must be >= 0, got %d", cfg.MaxRetries)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
