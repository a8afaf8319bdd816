package app

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// UsageAPIURL is where the server fetches usage data. UsageAPIPublicURL is
	// the origin browsers are sent to for report downloads.
	UsageAPIURL       string        `envconfig:"USAGE_API_URL" default:"http://127.0.0.1:5000"`
	UsageAPIPublicURL string        `envconfig:"USAGE_API_PUBLIC_URL"`
	UsageAPITimeout   time.Duration `envconfig:"USAGE_API_TIMEOUT" default:"0s"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
}

// LoadConfig reads configuration from a .env file, when present, and the
// environment. Variables already set in the environment win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.UsageAPIURL = strings.TrimRight(strings.TrimSpace(cfg.UsageAPIURL), "/")
	if cfg.UsageAPIURL == "" {
		return nil, errors.New("usage api url must be provided")
	}
	cfg.UsageAPIPublicURL = strings.TrimRight(strings.TrimSpace(cfg.UsageAPIPublicURL), "/")
	if cfg.UsageAPIPublicURL == "" {
		cfg.UsageAPIPublicURL = cfg.UsageAPIURL
	}
	if cfg.UsageAPITimeout < 0 {
		return nil, errors.New("usage api timeout must not be negative")
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, errors.New("rate limit must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
