// Package config handles environment variable parsing and validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// AuthMode represents the SSH authentication mode.
type AuthMode string

const (
	AuthModeAllowlist AuthMode = "allowlist"
	AuthModePublic    AuthMode = "public"
)

// Config holds all application configuration.
type Config struct {
	// SSH server settings
	SSHAddr        string   `env:"SSH_ADDR" envDefault:":23234"`
	SSHHostKeyPath string   `env:"SSH_HOSTKEY_PATH" envDefault:"./.ssh_host_ed25519_key"`
	SSHAuthMode    AuthMode `env:"SSH_AUTH_MODE" envDefault:"allowlist"`
	AllowlistPath  string   `env:"SSH_ALLOWLIST_PATH" envDefault:"./allowlist_authorized_keys"`

	// Storefront API settings
	StoreBaseURL string        `env:"STORE_BASE_URL" envDefault:"http://127.0.0.1:18080"`
	ShopDomain   string        `env:"SHOP_DOMAIN" envDefault:"demo.myshopify.com"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Circuit breaker
	BreakerMaxFailures uint32        `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`

	// Cache settings
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"60s"`

	// Observability
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.SSHAuthMode != AuthModeAllowlist && c.SSHAuthMode != AuthModePublic {
		return errors.New("SSH_AUTH_MODE must be 'allowlist' or 'public'")
	}

	u, err := url.Parse(c.StoreBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("STORE_BASE_URL must be an absolute http(s) URL, got %q", c.StoreBaseURL)
	}
	c.StoreBaseURL = strings.TrimRight(c.StoreBaseURL, "/")

	if strings.TrimSpace(c.ShopDomain) == "" {
		return errors.New("SHOP_DOMAIN must not be empty")
	}

	if _, err := log.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("LOG_FORMAT must be text, json or logfmt, got %q", c.LogFormat)
	}

	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}

	return nil
}
