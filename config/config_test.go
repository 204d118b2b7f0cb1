package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.MaxParallel != 4 {
		t.Errorf("expected default max parallel 4, got %d", cfg.MaxParallel)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.QuoteTTL != 5*time.Minute {
		t.Errorf("expected default quote TTL 5m, got %v", cfg.QuoteTTL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("QUOTE_MAX_PARALLEL", "8")
	t.Setenv("QUOTE_BASE_DELAY", "250ms")
	t.Setenv("QUOTE_CACHE_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.MaxParallel != 8 {
		t.Errorf("expected max parallel 8, got %d", cfg.MaxParallel)
	}
	if cfg.BaseDelay != 250*time.Millisecond {
		t.Errorf("expected base delay 250ms, got %v", cfg.BaseDelay)
	}
	if cfg.QuoteTTL != 30*time.Second {
		t.Errorf("expected quote TTL 30s, got %v", cfg.QuoteTTL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("QUOTE_MAX_PARALLEL", "0")
	if _, err := Load(); err == nil {
		t.Error("expected error for QUOTE_MAX_PARALLEL=0")
	}

	t.Setenv("QUOTE_MAX_PARALLEL", "four")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric QUOTE_MAX_PARALLEL")
	}

	t.Setenv("QUOTE_MAX_PARALLEL", "4")
	t.Setenv("QUOTE_MAX_RETRIES", "-1")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative QUOTE_MAX_RETRIES")
	}
}
