// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vitrina/config.yaml",
	"/etc/vitrina/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	return loadFrom(FindConfigFile())
}

// LoadFile loads configuration from an explicit file path plus defaults
// and environment variables.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return loadFrom(path)
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile returns the first existing config file path, or "".
func FindConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive as env var strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env var strings to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so random environment noise never leaks
// into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":           "server.host",
		"http_port":           "server.port",
		"http_read_timeout":   "server.read_timeout",
		"http_write_timeout":  "server.write_timeout",
		"shutdown_timeout":    "server.shutdown_timeout",
		"cors_origins":        "server.cors_origins",
		"rate_limit_requests": "server.rate_limit_requests",
		"rate_limit_window":   "server.rate_limit_window",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Recommendation core
		"recommend_default_n":          "recommend.limits.default_n",
		"recommend_max_n":              "recommend.limits.max_n",
		"recommend_candidate_fetch":    "recommend.limits.candidate_fetch",
		"recommend_source_timeout":     "recommend.limits.source_timeout",
		"recommend_enrich_concurrency": "recommend.limits.enrich_concurrency",
		"recommend_cold_start_popular": "recommend.fallback.cold_start_popular_probability",
		"recommend_history_categories": "recommend.fallback.history_categories",
		"recommend_seed":               "recommend.seed",

		// Product cache
		"cache_ttl":              "cache.ttl",
		"cache_store_type":       "cache.store.type",
		"cache_store_path":       "cache.store.path",
		"cache_preload_rate":     "cache.preload_rate",
		"cache_preload_burst":    "cache.preload_burst",
		"cache_preload_workers":  "cache.preload_concurrency",
		"cache_cleanup_interval": "cache.store.cleanup_interval",

		// Upstream sources
		"content_source_enabled": "sources.content.enabled",
		"content_source_url":     "sources.content.base_url",
		"content_source_api_key": "sources.content.api_key",
		"content_source_timeout": "sources.content.timeout",
		"retail_source_enabled":  "sources.retail.enabled",
		"retail_source_url":      "sources.retail.base_url",
		"retail_source_api_key":  "sources.retail.api_key",
		"retail_source_timeout":  "sources.retail.timeout",
		"catalog_enabled":        "sources.catalog.enabled",
		"catalog_url":            "sources.catalog.base_url",
		"catalog_api_key":        "sources.catalog.api_key",
		"catalog_timeout":        "sources.catalog.timeout",

		// Event log
		"events_db_path":        "events.database_path",
		"events_history_limit":  "events.history_limit",
		"events_retention":      "events.retention",
		"events_prune_interval": "events.prune_interval",
		"nats_enabled":          "events.nats.enabled",
		"nats_url":              "events.nats.url",
		"nats_topic":            "events.nats.topic",
		"nats_queue_group":      "events.nats.queue_group",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile invokes callback whenever the config file changes. The
// caller is responsible for reloading and for mutex protection.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
