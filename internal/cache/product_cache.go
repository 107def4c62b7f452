// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vitrina-io/vitrina/internal/metrics"
	"github.com/vitrina-io/vitrina/internal/recommend"
)

// productKeyPrefix namespaces product entries inside the shared store.
const productKeyPrefix = "product:"

// Config holds product cache configuration.
type Config struct {
	// TTL is how long a cached product stays valid. Expired products are
	// re-fetched from the resolver on next access.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// PreloadRate limits resolver calls per second during a preload.
	PreloadRate float64 `json:"preload_rate" koanf:"preload_rate"`

	// PreloadBurst is the rate limiter burst size during a preload.
	PreloadBurst int `json:"preload_burst" koanf:"preload_burst"`

	// PreloadConcurrency bounds parallel resolver calls during a preload.
	PreloadConcurrency int `json:"preload_concurrency" koanf:"preload_concurrency"`

	// Store configures the backing store.
	Store StoreConfig `json:"store" koanf:"store"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		TTL:                30 * time.Minute,
		PreloadRate:        20,
		PreloadBurst:       5,
		PreloadConcurrency: 4,
		Store: StoreConfig{
			Type:            StoreTypeMemory,
			CleanupInterval: 5 * time.Minute,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", c.TTL)
	}
	if c.PreloadRate <= 0 {
		return fmt.Errorf("preload_rate must be positive, got %g", c.PreloadRate)
	}
	if c.PreloadBurst <= 0 {
		return fmt.Errorf("preload_burst must be positive, got %d", c.PreloadBurst)
	}
	if c.PreloadConcurrency <= 0 {
		return fmt.Errorf("preload_concurrency must be positive, got %d", c.PreloadConcurrency)
	}
	return nil
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	ResolverErrors int64   `json:"resolver_errors"`
	Preloaded      int64   `json:"preloaded"`
	HitRatio       float64 `json:"hit_ratio"`
}

// ProductCache is the cache-aside read path for product data. Lookups hit
// the store first and fall through to the resolver on miss; resolved
// products are written back with the configured TTL. Safe for concurrent
// use.
type ProductCache struct {
	cfg      Config
	store    Store
	resolver recommend.ProductResolver
	logger   zerolog.Logger

	hits           atomic.Int64
	misses         atomic.Int64
	resolverErrors atomic.Int64
	preloaded      atomic.Int64
}

// NewProductCache creates a product cache over store and resolver. The
// resolver may be nil; lookups then serve only what the store holds.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewProductCache(cfg Config, store Store, resolver recommend.ProductResolver, logger zerolog.Logger) (*ProductCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &ProductCache{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		logger:   logger.With().Str("component", "product_cache").Logger(),
	}, nil
}

// Get resolves one product ID through the cache. The outcome is a tagged
// lookup rather than an error: a store failure degrades to a resolver
// round-trip, a resolver failure degrades to a miss or resolver-error
// state the caller can stub out.
func (c *ProductCache) Get(ctx context.Context, id string) recommend.Lookup {
	if p, ok := c.fromStore(ctx, id); ok {
		c.hits.Add(1)
		metrics.RecordCacheAccess("product", true)
		return recommend.Lookup{Product: p, State: recommend.LookupHit}
	}
	c.misses.Add(1)
	metrics.RecordCacheAccess("product", false)

	if c.resolver == nil {
		return recommend.Lookup{State: recommend.LookupMiss}
	}

	p, err := c.resolver.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, recommend.ErrProductNotFound) {
			return recommend.Lookup{State: recommend.LookupMiss}
		}
		c.resolverErrors.Add(1)
		metrics.CacheResolverErrors.Inc()
		c.logger.Warn().Err(err).Str("product_id", id).Msg("resolver failed")
		return recommend.Lookup{State: recommend.LookupResolverError, Err: err}
	}

	c.toStore(ctx, p)
	return recommend.Lookup{Product: p, State: recommend.LookupHit}
}

// Put stores a product directly, bypassing the resolver. Used by preload
// and by ingestion paths that already hold the full product.
//
//nolint:gocritic // hugeParam: Product passed by value for immutability
func (c *ProductCache) Put(ctx context.Context, p recommend.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product has no ID")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product %s: %w", p.ID, err)
	}
	if err := c.store.Set(ctx, productKeyPrefix+p.ID, data, c.cfg.TTL); err != nil {
		return fmt.Errorf("store product %s: %w", p.ID, err)
	}
	return nil
}

// Invalidate removes one product from the cache.
func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	return c.store.Delete(ctx, productKeyPrefix+id)
}

// PreloadResult summarizes a preload run.
type PreloadResult struct {
	Requested int `json:"requested"`
	Loaded    int `json:"loaded"`
	Failed    int `json:"failed"`
}

// Preload warms the cache for the given IDs through the resolver,
// rate-limited and with bounded concurrency. Individual failures are
// counted, not fatal; the run stops early only when ctx is canceled.
func (c *ProductCache) Preload(ctx context.Context, ids []string) (PreloadResult, error) {
	result := PreloadResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}
	if c.resolver == nil {
		return result, fmt.Errorf("preload requires a resolver")
	}

	start := time.Now()
	limiter := rate.NewLimiter(rate.Limit(c.cfg.PreloadRate), c.cfg.PreloadBurst)

	var loaded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.PreloadConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			p, err := c.resolver.Resolve(gctx, id)
			if err != nil {
				failed.Add(1)
				c.logger.Warn().Err(err).Str("product_id", id).Msg("preload resolve failed")
				return nil
			}
			if err := c.Put(gctx, p); err != nil {
				failed.Add(1)
				c.logger.Warn().Err(err).Str("product_id", id).Msg("preload store failed")
				return nil
			}
			loaded.Add(1)
			return nil
		})
	}

	err := g.Wait()
	result.Loaded = int(loaded.Load())
	result.Failed = int(failed.Load())
	c.preloaded.Add(loaded.Load())
	metrics.RecordPreload(result.Loaded, result.Failed, time.Since(start))

	if err != nil {
		return result, fmt.Errorf("preload interrupted: %w", err)
	}
	c.logger.Info().
		Int("requested", result.Requested).
		Int("loaded", result.Loaded).
		Int("failed", result.Failed).
		Msg("preload complete")
	return result, nil
}

// Warm stores products directly without touching the resolver, for
// callers that already hold a catalog snapshot.
func (c *ProductCache) Warm(ctx context.Context, products []recommend.Product) (PreloadResult, error) {
	result := PreloadResult{Requested: len(products)}
	for _, p := range products {
		if err := c.Put(ctx, p); err != nil {
			result.Failed++
			c.logger.Warn().Err(err).Str("product_id", p.ID).Msg("warm store failed")
			continue
		}
		result.Loaded++
	}
	c.preloaded.Add(int64(result.Loaded))
	return result, nil
}

// Stats returns a snapshot of the cache counters.
func (c *ProductCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return Stats{
		Hits:           hits,
		Misses:         misses,
		ResolverErrors: c.resolverErrors.Load(),
		Preloaded:      c.preloaded.Load(),
		HitRatio:       ratio,
	}
}

// Close closes the backing store.
func (c *ProductCache) Close() error {
	return c.store.Close()
}

// fromStore reads and decodes one product from the store. Store errors
// and decode errors count as misses; a corrupt entry is dropped.
func (c *ProductCache) fromStore(ctx context.Context, id string) (recommend.Product, bool) {
	var p recommend.Product

	data, found, err := c.store.Get(ctx, productKeyPrefix+id)
	if err != nil {
		c.logger.Warn().Err(err).Str("product_id", id).Msg("store read failed")
		return p, false
	}
	if !found {
		return p, false
	}
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn().Err(err).Str("product_id", id).Msg("corrupt cache entry, dropping")
		//nolint:errcheck // Removing a corrupt entry is best-effort
		c.store.Delete(ctx, productKeyPrefix+id)
		return p, false
	}
	return p, true
}

// toStore writes one product back after a resolver fetch. Write failures
// are logged, never surfaced; the caller already has the product.
//
//nolint:gocritic // hugeParam: Product passed by value for immutability
func (c *ProductCache) toStore(ctx context.Context, p recommend.Product) {
	if err := c.Put(ctx, p); err != nil {
		c.logger.Warn().Err(err).Str("product_id", p.ID).Msg("cache write failed")
	}
}

// Default cache instance, guarded for concurrent access. The HTTP layer
// and the supervisor share one cache per process.
var (
	defaultMu    sync.RWMutex
	defaultCache *ProductCache
)

// SetDefault installs the process-wide cache instance.
func SetDefault(c *ProductCache) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCache = c
}

// Default returns the process-wide cache instance, or nil before
// SetDefault.
func Default() *ProductCache {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultCache
}

// Verify interface implementation at compile time
var _ recommend.ProductEnricher = (*ProductCache)(nil)
