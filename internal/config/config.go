package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DatabaseURL string   `env:"DATABASE_URL,required"`
	Port        int      `env:"PORT,default=8080"`
	LogLevel    string   `env:"LOG_LEVEL,default=info"`
	CORSOrigins []string `env:"CORS_ORIGINS"`

	// Token TTL bounds; out-of-range client requests are clamped into
	// [TokenMinTTL, TokenMaxTTL].
	TokenMinTTL     time.Duration `env:"TOKEN_MIN_TTL,default=1m"`
	TokenMaxTTL     time.Duration `env:"TOKEN_MAX_TTL,default=24h"`
	TokenDefaultTTL time.Duration `env:"TOKEN_DEFAULT_TTL,default=24h"`

	// Per-principal request quota assigned at credential creation.
	RateLimitMax    int `env:"RATE_LIMIT_MAX,default=100"`
	RateLimitWindow int `env:"RATE_LIMIT_WINDOW,default=60"`

	// When set, a credential for this username is created at startup if none
	// exists yet. Key and secret prefix are logged once.
	BootstrapUsername string `env:"BOOTSTRAP_USERNAME"`

	// HTTP server timeouts
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	if c.TokenMinTTL <= 0 {
		return fmt.Errorf("TOKEN_MIN_TTL must be positive, got %s", c.TokenMinTTL)
	}
	if c.TokenMaxTTL < c.TokenMinTTL {
		return fmt.Errorf("TOKEN_MAX_TTL (%s) must not be below TOKEN_MIN_TTL (%s)", c.TokenMaxTTL, c.TokenMinTTL)
	}
	if c.TokenDefaultTTL < c.TokenMinTTL || c.TokenDefaultTTL > c.TokenMaxTTL {
		return fmt.Errorf("TOKEN_DEFAULT_TTL (%s) must be within [TOKEN_MIN_TTL, TOKEN_MAX_TTL]", c.TokenDefaultTTL)
	}

	if c.RateLimitMax < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX must be at least 1, got %d", c.RateLimitMax)
	}
	if c.RateLimitWindow < 1 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1 second, got %d", c.RateLimitWindow)
	}

	return nil
}
