package portalx

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultRequestTimeout = 12 * time.Second
	defaultCacheTTL       = 5 * time.Minute
	defaultLoginPath      = "/login"
	defaultDevBaseURL     = "/api"
)

// Config describes how the client reaches the billing portal.
type Config struct {
	// BaseURL is the portal origin. In development it defaults to the local
	// proxy path; in production an explicit origin is required.
	BaseURL string
	// LoginPath is the surface an invalidated session is redirected to.
	LoginPath string
	// Environment selects defaults: "development" or "production".
	Environment string
	// RequestTimeout bounds every request. No retries are performed.
	RequestTimeout time.Duration
	// CacheTTL is the freshness window for cached installment records.
	CacheTTL time.Duration
}

// normalize sets default values for optional fields.
func (c *Config) normalize() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.BaseURL == "" && c.Environment != "production" {
		c.BaseURL = defaultDevBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.LoginPath == "" {
		c.LoginPath = defaultLoginPath
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
}

// validate ensures the configuration is usable.
func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required in production")
	}
	if strings.Contains(c.BaseURL, "://") {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
	}
	return nil
}

// LoadConfig reads configuration from an optional portal.toml file and
// PORTAL_-prefixed environment variables. Environment variables win over the
// file, the file wins over built-in defaults.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigName("portal")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		// Missing file is fine, defaults and env vars apply.
	}

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		BaseURL:        v.GetString("base_url"),
		LoginPath:      v.GetString("login_path"),
		Environment:    v.GetString("environment"),
		RequestTimeout: v.GetDuration("request_timeout"),
		CacheTTL:       v.GetDuration("cache_ttl"),
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
