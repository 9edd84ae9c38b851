package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SSHAddr != ":23234" {
		t.Errorf("expected default SSH address, got %q", cfg.SSHAddr)
	}
	if cfg.SSHAuthMode != AuthModeAllowlist {
		t.Errorf("expected allowlist mode, got %q", cfg.SSHAuthMode)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("expected 60s TTL, got %v", cfg.CacheTTL)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("expected metrics disabled by default, got %q", cfg.MetricsAddr)
	}
}

func TestParseFromEnv(t *testing.T) {
	t.Setenv("SSH_AUTH_MODE", "public")
	t.Setenv("STORE_BASE_URL", "https://cod.example.com/")
	t.Setenv("SHOP_DOMAIN", "tienda.myshopify.com")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("BREAKER_MAX_FAILURES", "3")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SSHAuthMode != AuthModePublic {
		t.Errorf("expected public mode, got %q", cfg.SSHAuthMode)
	}
	if cfg.StoreBaseURL != "https://cod.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.StoreBaseURL)
	}
	if cfg.ShopDomain != "tienda.myshopify.com" {
		t.Errorf("unexpected shop %q", cfg.ShopDomain)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected 5m TTL, got %v", cfg.CacheTTL)
	}
	if cfg.BreakerMaxFailures != 3 {
		t.Errorf("expected 3 failures, got %d", cfg.BreakerMaxFailures)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"auth mode", "SSH_AUTH_MODE", "everyone"},
		{"base url", "STORE_BASE_URL", "cod.example.com"},
		{"log level", "LOG_LEVEL", "chatty"},
		{"log format", "LOG_FORMAT", "xml"},
		{"ttl", "CACHE_TTL", "soon"},
		{"negative ttl", "CACHE_TTL", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Parse(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
