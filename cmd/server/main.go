// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

// Package main is the entry point for the Vitrina recommendation server.
//
// Vitrina serves product recommendations for a storefront, blending
// content-similarity and retail collaborative candidates with a fallback
// chain over the product catalog. Product data is cached with a TTL,
// and user interaction history arrives over NATS into a DuckDB event log.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config file, and env vars (Koanf v2)
//  2. Event log: DuckDB-backed interaction store
//  3. Product cache: memory or Badger store with the catalog as resolver
//  4. Recommendation service: sources, exclusions, fallback chain
//  5. Supervisor tree: HTTP server, NATS consumer, storage janitors
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. See internal/config for the full key list.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, waits for in-flight requests up to the
// configured shutdown timeout, and closes the consumer and stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitrina-io/vitrina/internal/api"
	"github.com/vitrina-io/vitrina/internal/cache"
	"github.com/vitrina-io/vitrina/internal/config"
	"github.com/vitrina-io/vitrina/internal/events"
	"github.com/vitrina-io/vitrina/internal/logging"
	"github.com/vitrina-io/vitrina/internal/recommend"
	"github.com/vitrina-io/vitrina/internal/sources"
	"github.com/vitrina-io/vitrina/internal/supervisor"
	"github.com/vitrina-io/vitrina/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available, the default logger has to do.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("events_db", cfg.Events.DatabasePath).
		Str("cache_store", string(cfg.Cache.Store.Type)).
		Bool("nats_enabled", cfg.Events.NATS.Enabled).
		Msg("Configuration loaded")

	// Pick up logging changes from the config file without a restart.
	if cfgPath := config.FindConfigFile(); cfgPath != "" {
		watchErr := config.WatchConfigFile(cfgPath, func() {
			reloaded, err := config.Load()
			if err != nil {
				logging.Warn().Err(err).Msg("Config reload failed, keeping current logging settings")
				return
			}
			logging.Init(logging.Config{
				Level:  reloaded.Logging.Level,
				Format: reloaded.Logging.Format,
				Caller: reloaded.Logging.Caller,
			})
			logging.Info().Str("level", reloaded.Logging.Level).Msg("Logging reconfigured from config file")
		})
		if watchErr != nil {
			logging.Warn().Err(watchErr).Msg("Config file watch unavailable")
		}
	}

	// Interaction event log.
	eventStore, err := events.Open(cfg.Events.DatabasePath, cfg.Events.HistoryLimit, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open event store")
	}
	defer func() {
		if err := eventStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()

	// Upstream clients. Disabled sources stay nil and the service
	// degrades to the fallback chain.
	var (
		content recommend.ContentCandidateSource
		retail  recommend.RetailCandidateSource
		catalog *sources.CatalogClient
	)
	if cfg.Sources.Content.Enabled {
		content = sources.NewContentClient(cfg.Sources.Content, logger)
	}
	if cfg.Sources.Retail.Enabled {
		retail = sources.NewRetailClient(cfg.Sources.Retail, logger)
	}
	if cfg.Sources.Catalog.Enabled {
		catalog = sources.NewCatalogClient(cfg.Sources.Catalog, logger)
	}

	// Product cache backed by the configured store, with the catalog as
	// resolver.
	store, err := cache.NewStore(cfg.Cache.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create cache store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache store")
		}
	}()

	var resolver recommend.ProductResolver
	if catalog != nil {
		resolver = catalog
	}
	productCache, err := cache.NewProductCache(cfg.Cache, store, resolver, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create product cache")
	}
	cache.SetDefault(productCache)

	// Recommendation pipeline.
	service, err := buildRecommendService(cfg, eventStore, content, retail, catalog, productCache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build recommendation service")
	}

	// HTTP surface.
	var lister api.ProductIDLister
	if catalog != nil {
		lister = catalog
	}
	handler := api.NewHandler(service, productCache, lister, logger)
	router := api.NewRouter(handler, cfg.Server)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervisor tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	if cfg.Events.NATS.Enabled {
		consumer, err := events.NewConsumer(cfg.Events.NATS, eventStore, logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create interaction consumer")
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing interaction consumer")
			}
		}()
		tree.AddMessagingService(services.NewConsumerService(consumer))
	}

	if badgerStore, ok := store.(*cache.BadgerStore); ok {
		tree.AddDataService(services.NewJanitorService("badger-gc", time.Hour, func(context.Context) error {
			return badgerStore.RunGC()
		}, logger))
	}
	if cfg.Events.Retention > 0 {
		tree.AddDataService(services.NewJanitorService("event-prune", cfg.Events.PruneInterval, func(ctx context.Context) error {
			_, err := eventStore.Prune(ctx, time.Now().Add(-cfg.Events.Retention))
			return err
		}, logger))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if pc := cache.Default(); pc != nil {
		stats := pc.Stats()
		logging.Info().
			Int64("hits", stats.Hits).
			Int64("misses", stats.Misses).
			Float64("hit_ratio", stats.HitRatio).
			Msg("Final cache statistics")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// defaultSeed keeps strategy selection reproducible when no seed is
// configured.
const defaultSeed = 42

// buildRecommendService wires the recommendation pipeline from config.
func buildRecommendService(
	cfg *config.Config,
	eventStore *events.Store,
	content recommend.ContentCandidateSource,
	retail recommend.RetailCandidateSource,
	catalog *sources.CatalogClient,
	productCache *cache.ProductCache,
) (*recommend.Service, error) {
	logger := logging.Logger()

	seed := cfg.Recommend.Seed
	if seed == 0 {
		seed = defaultSeed
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // score jitter, not crypto

	detector, err := recommend.NewCategoryDetector(cfg.Recommend.CategoryKeywords)
	if err != nil {
		return nil, fmt.Errorf("category detector: %w", err)
	}

	tracker := recommend.NewExclusionTracker(eventStore, logger)
	scorer := recommend.NewPopularityScorer(cfg.Recommend.Popularity, rng)
	sampler := recommend.NewDiversitySampler(scorer, rng)

	var catalogSource recommend.CatalogSource
	if catalog != nil {
		catalogSource = catalog
	}
	fallback := recommend.NewFallbackOrchestrator(
		catalogSource, tracker, detector, sampler, scorer,
		cfg.Recommend.Fallback, rng, logger,
	)

	return recommend.NewService(&cfg.Recommend, content, retail, tracker, fallback, productCache, logger)
}
