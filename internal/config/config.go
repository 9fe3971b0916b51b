package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	Port        int    `env:"PORT" default:"3000"`
	DefaultName string `env:"RELAY_DEFAULT_NAME" default:"New user"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Empty or "*" accepts any origin.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`
	MetricsEnabled bool     `env:"METRICS_ENABLED" default:"true"`

	// Inbound frames per second per connection; 0 disables the limiter.
	MessageRateLimit float64 `env:"MESSAGE_RATE_LIMIT" default:"0"`
	MessageRateBurst int     `env:"MESSAGE_RATE_BURST" default:"20"`
	MaxMessageSize   int64   `env:"MAX_MESSAGE_SIZE" default:"65536"`
	SendBufferSize   int     `env:"SEND_BUFFER_SIZE" default:"256"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, errors.New("PORT must be between 1 and 65535"))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error"))
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		errs = append(errs, errors.New("LOG_FORMAT must be one of: text, json"))
	}
	if c.MessageRateLimit < 0 {
		errs = append(errs, errors.New("MESSAGE_RATE_LIMIT must not be negative"))
	}
	if c.MessageRateLimit > 0 && c.MessageRateBurst < 1 {
		errs = append(errs, errors.New("MESSAGE_RATE_BURST must be at least 1 when rate limiting is enabled"))
	}
	if c.MaxMessageSize < 1 {
		errs = append(errs, errors.New("MAX_MESSAGE_SIZE must be positive"))
	}
	if c.SendBufferSize < 1 {
		errs = append(errs, errors.New("SEND_BUFFER_SIZE must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AllowsAnyOrigin reports whether the origin check is disabled.
func (c *Config) AllowsAnyOrigin() bool {
	return len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*")
}
