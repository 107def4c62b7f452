// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

// Package config provides layered configuration loading for Vitrina.
// Precedence: environment variables > config file > built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitrina-io/vitrina/internal/cache"
	"github.com/vitrina-io/vitrina/internal/recommend"
)

// Config is the root configuration for the Vitrina server.
type Config struct {
	Server    ServerConfig     `json:"server" koanf:"server"`
	Logging   LoggingConfig    `json:"logging" koanf:"logging"`
	Recommend recommend.Config `json:"recommend" koanf:"recommend"`
	Cache     cache.Config     `json:"cache" koanf:"cache"`
	Sources   SourcesConfig    `json:"sources" koanf:"sources"`
	Events    EventsConfig     `json:"events" koanf:"events"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `json:"host" koanf:"host" validate:"required"`
	Port int    `json:"port" koanf:"port" validate:"min=1,max=65535"`

	// ReadTimeout and WriteTimeout bound one HTTP exchange.
	ReadTimeout  time.Duration `json:"read_timeout" koanf:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `json:"cors_origins" koanf:"cors_origins"`

	// RateLimitRequests allows this many requests per RateLimitWindow per
	// client IP. Zero disables rate limiting.
	RateLimitRequests int           `json:"rate_limit_requests" koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `json:"rate_limit_window" koanf:"rate_limit_window"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `json:"level" koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	Format string `json:"format" koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line in log events.
	Caller bool `json:"caller" koanf:"caller"`
}

// SourcesConfig holds the upstream client configuration.
type SourcesConfig struct {
	// Content is the embedding-similarity candidate service.
	Content ClientConfig `json:"content" koanf:"content"`

	// Retail is the collaborative retail recommendation API.
	Retail ClientConfig `json:"retail" koanf:"retail"`

	// Catalog is the storefront catalog API, used for product resolution
	// and the fallback pool.
	Catalog ClientConfig `json:"catalog" koanf:"catalog"`
}

// ClientConfig holds configuration for one upstream HTTP client.
type ClientConfig struct {
	// Enabled turns the client on. A disabled client is wired as absent
	// and its consumer degrades accordingly.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// BaseURL is the upstream base URL.
	BaseURL string `json:"base_url" koanf:"base_url" validate:"omitempty,url"`

	// APIKey is sent as a bearer token when non-empty.
	APIKey string `json:"api_key" koanf:"api_key"`

	// Timeout bounds one upstream HTTP exchange.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`

	// RetryMaxAttempts bounds retries per call, initial attempt included.
	RetryMaxAttempts int `json:"retry_max_attempts" koanf:"retry_max_attempts"`

	// RetryInitialInterval is the first backoff delay.
	RetryInitialInterval time.Duration `json:"retry_initial_interval" koanf:"retry_initial_interval"`

	// BreakerFailureThreshold consecutive failures open the circuit.
	BreakerFailureThreshold int `json:"breaker_failure_threshold" koanf:"breaker_failure_threshold"`

	// BreakerOpenTimeout is how long the circuit stays open before
	// probing the upstream again.
	BreakerOpenTimeout time.Duration `json:"breaker_open_timeout" koanf:"breaker_open_timeout"`
}

// EventsConfig holds the interaction event log configuration.
type EventsConfig struct {
	// DatabasePath is the DuckDB file backing the event log. Empty means
	// in-memory, which is only useful in tests.
	DatabasePath string `json:"database_path" koanf:"database_path"`

	// HistoryLimit caps how many events one user lookup returns.
	HistoryLimit int `json:"history_limit" koanf:"history_limit"`

	// Retention is how long interaction events are kept before pruning.
	Retention time.Duration `json:"retention" koanf:"retention"`

	// PruneInterval is how often the prune janitor runs.
	PruneInterval time.Duration `json:"prune_interval" koanf:"prune_interval"`

	// NATS configures the interaction event consumer.
	NATS NATSConfig `json:"nats" koanf:"nats"`
}

// NATSConfig holds the NATS interaction consumer configuration.
type NATSConfig struct {
	// Enabled turns the consumer on.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// URL is the NATS server URL.
	URL string `json:"url" koanf:"url"`

	// Topic is the subject interaction events arrive on.
	Topic string `json:"topic" koanf:"topic"`

	// QueueGroup load-balances consumers across replicas.
	QueueGroup string `json:"queue_group" koanf:"queue_group"`
}

// Default returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: *recommend.DefaultConfig(),
		Cache:     cache.DefaultConfig(),
		Sources: SourcesConfig{
			Content: defaultClientConfig(),
			Retail:  defaultClientConfig(),
			Catalog: defaultClientConfig(),
		},
		Events: EventsConfig{
			DatabasePath:  "/data/vitrina-events.duckdb",
			HistoryLimit:  500,
			Retention:     90 * 24 * time.Hour,
			PruneInterval: 6 * time.Hour,
			NATS: NATSConfig{
				Enabled:    false,
				URL:        "nats://127.0.0.1:4222",
				Topic:      "storefront.interactions",
				QueueGroup: "vitrina",
			},
		},
	}
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		Enabled:                 false,
		Timeout:                 5 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialInterval:    100 * time.Millisecond,
		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      30 * time.Second,
	}
}

// Validate checks the configuration. Struct tags cover field-level rules;
// section Validate methods cover cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	for name, client := range map[string]ClientConfig{
		"content": c.Sources.Content,
		"retail":  c.Sources.Retail,
		"catalog": c.Sources.Catalog,
	} {
		if client.Enabled && client.BaseURL == "" {
			return fmt.Errorf("sources.%s: enabled but base_url is empty", name)
		}
	}
	if c.Events.NATS.Enabled && c.Events.NATS.URL == "" {
		return fmt.Errorf("events.nats: enabled but url is empty")
	}
	if c.Events.HistoryLimit <= 0 {
		return fmt.Errorf("events.history_limit must be positive, got %d", c.Events.HistoryLimit)
	}
	return nil
}
