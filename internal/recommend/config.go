// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation core.
type Config struct {
	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Fallback contains fallback chain parameters.
	Fallback FallbackConfig `json:"fallback" koanf:"fallback"`

	// Popularity contains popularity heuristic parameters.
	Popularity PopularityConfig `json:"popularity" koanf:"popularity"`

	// CategoryKeywords maps a category name to the keywords that select it.
	// Empty means the built-in default table.
	CategoryKeywords map[string][]string `json:"category_keywords,omitempty" koanf:"category_keywords"`

	// Seed is the random seed for deterministic behavior.
	// If zero, a fixed default seed is used.
	Seed int64 `json:"seed" koanf:"seed"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultN is the result size when the request leaves N zero.
	DefaultN int `json:"default_n" koanf:"default_n"`

	// MaxN caps the requested result size.
	MaxN int `json:"max_n" koanf:"max_n"`

	// CandidateFetch is how many candidates to request from each source.
	// Fetching more than N leaves room for exclusion filtering.
	CandidateFetch int `json:"candidate_fetch" koanf:"candidate_fetch"`

	// SourceTimeout bounds each candidate-source call. A source that does
	// not answer in time contributes an empty list.
	SourceTimeout time.Duration `json:"source_timeout" koanf:"source_timeout"`

	// EnrichConcurrency bounds parallel enrichment lookups per request.
	EnrichConcurrency int `json:"enrich_concurrency" koanf:"enrich_concurrency"`
}

// FallbackConfig contains fallback chain parameters.
type FallbackConfig struct {
	// ColdStartPopularProbability is the probability of choosing the
	// popular path over the diverse path for users without history.
	ColdStartPopularProbability float64 `json:"cold_start_popular_probability" koanf:"cold_start_popular_probability"`

	// HistoryCategories is how many top historical categories the
	// personalized path allocates across.
	HistoryCategories int `json:"history_categories" koanf:"history_categories"`
}

// PopularityConfig contains popularity heuristic parameters.
type PopularityConfig struct {
	// MidPriceLow and MidPriceHigh bound the mid-range price band that the
	// heuristic rewards.
	MidPriceLow  float64 `json:"mid_price_low" koanf:"mid_price_low"`
	MidPriceHigh float64 `json:"mid_price_high" koanf:"mid_price_high"`

	// Jitter is the maximum random score added for tie-breaking diversity
	// across calls. Zero disables jitter.
	Jitter float64 `json:"jitter" koanf:"jitter"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			DefaultN:          10,
			MaxN:              50,
			CandidateFetch:    30,
			SourceTimeout:     2 * time.Second,
			EnrichConcurrency: 8,
		},
		Fallback: FallbackConfig{
			ColdStartPopularProbability: 0.7,
			HistoryCategories:           3,
		},
		Popularity: PopularityConfig{
			MidPriceLow:  15,
			MidPriceHigh: 120,
			Jitter:       0.25,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Limits.DefaultN <= 0 {
		return fmt.Errorf("limits.default_n must be positive, got %d", c.Limits.DefaultN)
	}
	if c.Limits.MaxN < c.Limits.DefaultN {
		return fmt.Errorf("limits.max_n (%d) must be >= limits.default_n (%d)", c.Limits.MaxN, c.Limits.DefaultN)
	}
	if c.Limits.CandidateFetch <= 0 {
		return fmt.Errorf("limits.candidate_fetch must be positive, got %d", c.Limits.CandidateFetch)
	}
	if c.Limits.SourceTimeout <= 0 {
		return fmt.Errorf("limits.source_timeout must be positive, got %s", c.Limits.SourceTimeout)
	}
	if c.Limits.EnrichConcurrency <= 0 {
		return fmt.Errorf("limits.enrich_concurrency must be positive, got %d", c.Limits.EnrichConcurrency)
	}
	if p := c.Fallback.ColdStartPopularProbability; p < 0 || p > 1 {
		return fmt.Errorf("fallback.cold_start_popular_probability must be in [0,1], got %g", p)
	}
	if c.Fallback.HistoryCategories <= 0 {
		return fmt.Errorf("fallback.history_categories must be positive, got %d", c.Fallback.HistoryCategories)
	}
	if c.Popularity.MidPriceHigh < c.Popularity.MidPriceLow {
		return fmt.Errorf("popularity.mid_price_high (%g) must be >= popularity.mid_price_low (%g)",
			c.Popularity.MidPriceHigh, c.Popularity.MidPriceLow)
	}
	if c.Popularity.Jitter < 0 {
		return fmt.Errorf("popularity.jitter must be >= 0, got %g", c.Popularity.Jitter)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	if c.CategoryKeywords != nil {
		out.CategoryKeywords = make(map[string][]string, len(c.CategoryKeywords))
		for cat, kws := range c.CategoryKeywords {
			cp := make([]string, len(kws))
			copy(cp, kws)
			out.CategoryKeywords[cat] = cp
		}
	}
	return &out
}
