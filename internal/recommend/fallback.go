// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// FallbackOrchestrator produces recommendations when the primary candidate
// sources yield nothing, and backfills short results. Strategies are
// evaluated in strict priority order; the first one that applies wins:
//
//  1. QUERY_DRIVEN  - free text matched an available category
//  2. PERSONALIZED  - the user has interaction history
//  3. COLD_START    - weighted choice between POPULAR and DIVERSE
//
// A strategy that returns fewer than n items is topped up from the next
// broader tier (popularity ranking, then whatever remains in the pool),
// always honoring the exclusion set.
type FallbackOrchestrator struct {
	catalog  CatalogSource
	tracker  *ExclusionTracker
	detector *CategoryDetector
	sampler  *DiversitySampler
	scorer   *PopularityScorer
	cfg      FallbackConfig
	logger   zerolog.Logger

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewFallbackOrchestrator wires the fallback chain.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFallbackOrchestrator(
	catalog CatalogSource,
	tracker *ExclusionTracker,
	detector *CategoryDetector,
	sampler *DiversitySampler,
	scorer *PopularityScorer,
	cfg FallbackConfig,
	rng *rand.Rand,
	logger zerolog.Logger,
) *FallbackOrchestrator {
	return &FallbackOrchestrator{
		catalog:  catalog,
		tracker:  tracker,
		detector: detector,
		sampler:  sampler,
		scorer:   scorer,
		cfg:      cfg,
		rng:      rng,
		logger:   logger.With().Str("component", "fallback").Logger(),
	}
}

// Recommend returns up to n products drawn from the catalog pool, with the
// strategy that selected them. An unavailable catalog or a pool exhausted
// by exclusions yields an empty slice, which is a valid degenerate result.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *FallbackOrchestrator) Recommend(ctx context.Context, req Request, exclude map[string]struct{}) ([]Product, Strategy) {
	pool := o.loadPool(ctx)
	available := filterExcluded(pool, exclude)
	if len(available) == 0 {
		return nil, StrategyPopular
	}

	n := req.N
	if n > len(available) {
		n = len(available)
	}

	if selected, ok := o.queryDriven(req, available, n); ok {
		return selected, StrategyQueryDriven
	}

	if selected, ok := o.personalized(ctx, req, pool, available, n); ok {
		return selected, StrategyPersonalized
	}

	return o.coldStart(available, n, exclude)
}

// Backfill extends a short result with up to need additional products,
// re-running the strategy chain with the already-selected IDs excluded.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *FallbackOrchestrator) Backfill(ctx context.Context, req Request, need int, exclude map[string]struct{}) ([]Product, Strategy) {
	if need <= 0 {
		return nil, StrategyPopular
	}
	req.N = need
	return o.Recommend(ctx, req, exclude)
}

// loadPool fetches the catalog, degrading to an empty pool on failure.
func (o *FallbackOrchestrator) loadPool(ctx context.Context) []Product {
	if o.catalog == nil {
		return nil
	}
	pool, err := o.catalog.Products(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("catalog unavailable, fallback pool empty")
		return nil
	}
	return pool
}

// queryDriven samples primarily from the category detected in the query
// text, backfilling from the popularity-ranked remainder of the pool.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *FallbackOrchestrator) queryDriven(req Request, available []Product, n int) ([]Product, bool) {
	if req.QueryText == "" {
		return nil, false
	}

	buckets := groupByCategory(available)
	categories := make(map[string]struct{}, len(buckets))
	for cat := range buckets {
		if cat != "" {
			categories[cat] = struct{}{}
		}
	}

	category, ok := o.detector.Detect(req.QueryText, categories)
	if !ok || len(buckets[category]) == 0 {
		return nil, false
	}

	o.logger.Debug().
		Str("category", category).
		Int("bucket_size", len(buckets[category])).
		Msg("query matched category")

	selected := o.sampler.shuffled(buckets[category])
	if len(selected) > n {
		selected = selected[:n]
	}
	return o.topUp(selected, available, n), true
}

// personalized allocates n across the user's most frequent historical
// categories, proportionally to frequency. History categories are resolved
// against the full pool: the historical products themselves are usually in
// the exclusion set, but they still signal which categories the user likes.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *FallbackOrchestrator) personalized(ctx context.Context, req Request, pool, available []Product, n int) ([]Product, bool) {
	history := o.tracker.History(ctx, req.UserID)
	if len(history) == 0 {
		return nil, false
	}

	buckets := groupByCategory(available)
	top := o.topHistoryCategories(history, pool, buckets)
	if len(top) == 0 {
		// History exists but none of its categories survive in the pool;
		// the personalized tier still owns the result, filled from the
		// broader tiers.
		return o.topUp(nil, available, n), true
	}

	selected := make([]Product, 0, n)
	selectedIDs := make(map[string]struct{}, n)
	for _, alloc := range allocateQuotas(top, n) {
		picks := o.sampler.sampleBucket(buckets[alloc.category], alloc.quota)
		selected = appendFresh(selected, picks, selectedIDs, n)
	}

	return o.topUp(selected, available, n), true
}

// categoryCount pairs a category with its interaction frequency.
type categoryCount struct {
	category string
	count    int
}

// topHistoryCategories maps historical product IDs onto catalog categories
// and returns the most frequent ones, capped by config. IDs are resolved
// against the pre-exclusion pool; categories with no non-excluded products
// left (empty bucket) are skipped.
func (o *FallbackOrchestrator) topHistoryCategories(history []InteractionEvent, pool []Product, buckets map[string][]Product) []categoryCount {
	categoryByID := make(map[string]string, len(pool))
	for _, p := range pool {
		categoryByID[p.ID] = p.Category
	}

	counts := make(map[string]int)
	for _, ev := range history {
		cat, ok := categoryByID[ev.ProductID]
		if !ok || cat == "" {
			continue
		}
		counts[cat]++
	}

	top := make([]categoryCount, 0, len(counts))
	for cat, count := range counts {
		if len(buckets[cat]) == 0 {
			continue
		}
		top = append(top, categoryCount{category: cat, count: count})
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].count != top[j].count {
			return top[i].count > top[j].count
		}
		return top[i].category < top[j].category
	})

	if len(top) > o.cfg.HistoryCategories {
		top = top[:o.cfg.HistoryCategories]
	}
	return top
}

// quota pairs a category with the number of items allocated to it.
type quota struct {
	category string
	quota    int
}

// allocateQuotas distributes n across categories proportionally to their
// frequency: at least 1 each, the remainder to the most frequent.
func allocateQuotas(top []categoryCount, n int) []quota {
	total := 0
	for _, c := range top {
		total += c.count
	}

	quotas := make([]quota, len(top))
	allocated := 0
	for i, c := range top {
		q := n * c.count / total
		if q < 1 {
			q = 1
		}
		quotas[i] = quota{category: c.category, quota: q}
		allocated += q
	}

	if rest := n - allocated; rest > 0 {
		quotas[0].quota += rest
	}
	return quotas
}

// coldStart makes the explicit weighted choice between the popular and
// diverse paths for users with no signal.
func (o *FallbackOrchestrator) coldStart(available []Product, n int, exclude map[string]struct{}) ([]Product, Strategy) {
	o.rngMu.Lock()
	roll := o.rng.Float64()
	o.rngMu.Unlock()

	if roll < o.cfg.ColdStartPopularProbability {
		ranked := o.scorer.Rank(available)
		if len(ranked) > n {
			ranked = ranked[:n]
		}
		return ranked, StrategyPopular
	}
	return o.sampler.Sample(available, n, exclude), StrategyDiverse
}

// topUp extends selected to n from the popularity-ranked pool, skipping
// already-selected IDs. The pool is already exclusion-filtered.
func (o *FallbackOrchestrator) topUp(selected []Product, available []Product, n int) []Product {
	if len(selected) >= n {
		return selected[:n]
	}
	selectedIDs := make(map[string]struct{}, len(selected))
	for _, p := range selected {
		selectedIDs[p.ID] = struct{}{}
	}
	return appendFresh(selected, o.scorer.Rank(available), selectedIDs, n)
}
