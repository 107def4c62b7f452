// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Service is the recommendation orchestrator: it fans out to the two
// candidate sources, blends their scores, filters exclusions, backfills
// short results through the fallback chain and enriches the winners.
// It is safe for concurrent use.
type Service struct {
	cfg      *Config
	logger   zerolog.Logger
	content  ContentCandidateSource
	retail   RetailCandidateSource
	tracker  *ExclusionTracker
	fallback *FallbackOrchestrator
	enricher ProductEnricher
}

// NewService creates the orchestrator. content and retail may be nil when
// a deployment runs without that source; a nil source always contributes
// an empty candidate list.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(
	cfg *Config,
	content ContentCandidateSource,
	retail RetailCandidateSource,
	tracker *ExclusionTracker,
	fallback *FallbackOrchestrator,
	enricher ProductEnricher,
	logger zerolog.Logger,
) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Service{
		cfg:      cfg,
		logger:   logger.With().Str("component", "recommend").Logger(),
		content:  content,
		retail:   retail,
		tracker:  tracker,
		fallback: fallback,
		enricher: enricher,
	}, nil
}

// GetRecommendations produces a best-effort result for the request. The
// only error returned is request validation failure; collaborator
// failures degrade to smaller or empty results instead.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Service) GetRecommendations(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	req, err := s.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	logger := s.requestLogger(req)
	logger.Debug().Msg("processing recommendation request")

	exclude := s.tracker.ComputeExclusions(ctx, req.UserID, req.ExcludeProductIDs)

	content, retail, sources := s.fetchCandidates(ctx, req, logger)

	var items []RecommendedProduct
	strategy := StrategyBlended

	if len(content) == 0 && len(retail) == 0 {
		// No primary signal at all: the fallback chain owns the result.
		var products []Product
		products, strategy = s.fallback.Recommend(ctx, req, exclude)
		items = s.fallbackItems(products, strategy)
	} else {
		items = s.blend(ctx, req, content, retail, exclude)
		if len(items) == 0 {
			// Every candidate was excluded; same as having no signal.
			var products []Product
			products, strategy = s.fallback.Recommend(ctx, req, exclude)
			items = s.fallbackItems(products, strategy)
		} else if len(items) < req.N {
			items = s.extendShortResult(ctx, req, items, exclude)
		}
	}

	result := &Result{
		Items: items,
		Metadata: ResultMetadata{
			RequestID: req.RequestID,
			UserID:    req.UserID,
			Strategy:  strategy,
			Sources:   sources,
			Excluded:  len(exclude),
			LatencyMS: time.Since(start).Milliseconds(),
			Timestamp: time.Now(),
		},
	}

	logger.Debug().
		Str("strategy", string(strategy)).
		Int("returned", len(items)).
		Int("excluded", len(exclude)).
		Int64("latency_ms", result.Metadata.LatencyMS).
		Msg("recommendation complete")

	return result, nil
}

// prepareRequest validates the request and applies defaults.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Service) prepareRequest(req Request) (Request, error) {
	if req.UserID == "" {
		return req, fmt.Errorf("user_id is required")
	}
	if req.N <= 0 {
		req.N = s.cfg.Limits.DefaultN
	}
	if req.N > s.cfg.Limits.MaxN {
		req.N = s.cfg.Limits.MaxN
	}
	if req.ContentWeight < 0 {
		req.ContentWeight = 0
	}
	if req.ContentWeight > 1 {
		req.ContentWeight = 1
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	return req, nil
}

// requestLogger creates a logger with request context.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Service) requestLogger(req Request) zerolog.Logger {
	return s.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Logger()
}

// fetchCandidates runs the two source queries concurrently. Zero-weight
// sources are never invoked at all; a failed or timed-out source yields an
// empty list, never a request failure.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Service) fetchCandidates(ctx context.Context, req Request, logger zerolog.Logger) (content, retail []CandidateScore, sources []string) {
	wantContent := s.content != nil && req.ProductID != "" && req.ContentWeight > 0
	wantRetail := s.retail != nil && req.ContentWeight < 1

	var wg sync.WaitGroup
	if wantContent {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content = s.queryContent(ctx, req, logger)
		}()
	}
	if wantRetail {
		wg.Add(1)
		go func() {
			defer wg.Done()
			retail = s.queryRetail(ctx, req, logger)
		}()
	}
	wg.Wait()

	if len(content) > 0 {
		sources = append(sources, SourceContent.String())
	}
	if len(retail) > 0 {
		sources = append(sources, SourceRetail.String())
	}
	return content, retail, sources
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Service) queryContent(ctx context.Context, req Request, logger zerolog.Logger) []CandidateScore {
	srcCtx, cancel := context.WithTimeout(ctx, s.cfg.Limits.SourceTimeout)
	defer cancel()

	scores, err := s.content.Query(srcCtx, req.ProductID, s.cfg.Limits.CandidateFetch)
	if err != nil {
		logger.Warn().Err(err).Msg("content source unavailable, treating as empty")
		return nil
	}
	return scores
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Service) queryRetail(ctx context.Context, req Request, logger zerolog.Logger) []CandidateScore {
	srcCtx, cancel := context.WithTimeout(ctx, s.cfg.Limits.SourceTimeout)
	defer cancel()

	scores, err := s.retail.Query(srcCtx, req.UserID, req.ProductID, s.cfg.Limits.CandidateFetch)
	if err != nil {
		logger.Warn().Err(err).Msg("retail source unavailable, treating as empty")
		return nil
	}
	return scores
}

// blend combines the candidate lists, drops excluded IDs, truncates to n
// and enriches the survivors.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Service) blend(ctx context.Context, req Request, content, retail []CandidateScore, exclude map[string]struct{}) []RecommendedProduct {
	combined := Combine(content, retail, req.ContentWeight)

	kept := make([]CandidateScore, 0, req.N)
	for _, cs := range combined {
		if _, excluded := exclude[cs.ProductID]; excluded {
			continue
		}
		kept = append(kept, cs)
		if len(kept) == req.N {
			break
		}
	}

	return s.enrich(ctx, kept)
}

// enrich resolves candidates to full products with bounded concurrency.
// A candidate that cannot be resolved stays in the result as an incomplete
// stub, so the returned count is predictable.
func (s *Service) enrich(ctx context.Context, candidates []CandidateScore) []RecommendedProduct {
	items := make([]RecommendedProduct, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Limits.EnrichConcurrency)

	for i, cs := range candidates {
		g.Go(func() error {
			items[i] = s.enrichOne(gctx, cs)
			return nil
		})
	}
	// Workers never return errors; partial enrichment is not a failure.
	_ = g.Wait()

	return items
}

func (s *Service) enrichOne(ctx context.Context, cs CandidateScore) RecommendedProduct {
	item := RecommendedProduct{
		Product:    Product{ID: cs.ProductID},
		FinalScore: cs.Score,
		Strategy:   StrategyBlended,
	}

	if s.enricher == nil {
		item.Incomplete = true
		return item
	}

	lookup := s.enricher.Get(ctx, cs.ProductID)
	if lookup.State == LookupHit {
		item.Product = lookup.Product
	} else {
		item.Incomplete = true
	}
	return item
}

// extendShortResult backfills a short blended result through the fallback
// chain, excluding everything already selected.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (s *Service) extendShortResult(ctx context.Context, req Request, items []RecommendedProduct, exclude map[string]struct{}) []RecommendedProduct {
	combined := make(map[string]struct{}, len(exclude)+len(items))
	for id := range exclude {
		combined[id] = struct{}{}
	}
	for _, item := range items {
		combined[item.Product.ID] = struct{}{}
	}

	products, strategy := s.fallback.Backfill(ctx, req, req.N-len(items), combined)
	return append(items, s.fallbackItems(products, strategy)...)
}

// fallbackItems wraps fallback products as result entries. Fallback
// products come from the catalog pool, so they are already complete; the
// final score is the deterministic part of the popularity heuristic.
func (s *Service) fallbackItems(products []Product, strategy Strategy) []RecommendedProduct {
	items := make([]RecommendedProduct, len(products))
	for i, p := range products {
		items[i] = RecommendedProduct{
			Product:    p,
			FinalScore: s.fallback.scorer.baseScore(p),
			Strategy:   strategy,
		}
	}
	return items
}
