// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"math/rand"
	"sort"
	"sync"
)

// PopularityScorer ranks products by an attribute-completeness heuristic.
// Without interaction counts per product, attribute quality is a usable
// proxy: merchants invest images, descriptions, variants and tags in the
// products that sell.
//
// The score is the sum of:
//   - 2.0 if the product has an image
//   - up to 3.0 for description length (0.1 per 10 characters)
//   - 0.5 per variant, capped at 5 variants
//   - 1.5 if the price falls in the configured mid-range band
//   - 0.3 per tag, capped at 5 tags
//   - a small random jitter for tie-breaking diversity across calls
type PopularityScorer struct {
	cfg PopularityConfig

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewPopularityScorer creates a scorer with the given configuration and
// random source. The rng must not be shared without external locking;
// the scorer serializes its own access.
func NewPopularityScorer(cfg PopularityConfig, rng *rand.Rand) *PopularityScorer {
	return &PopularityScorer{cfg: cfg, rng: rng}
}

// Score returns the heuristic score for one product, including jitter.
//
//nolint:gocritic // hugeParam: Product passed by value for immutability
func (s *PopularityScorer) Score(p Product) float64 {
	score := s.baseScore(p)
	if s.cfg.Jitter > 0 {
		s.rngMu.Lock()
		score += s.rng.Float64() * s.cfg.Jitter
		s.rngMu.Unlock()
	}
	return score
}

// baseScore is the deterministic part of the heuristic.
//
//nolint:gocritic // hugeParam: Product passed by value for immutability
func (s *PopularityScorer) baseScore(p Product) float64 {
	var score float64

	if p.ImageURL != "" {
		score += 2.0
	}

	desc := float64(len(p.Description)) / 100.0
	if desc > 3.0 {
		desc = 3.0
	}
	score += desc

	variants := p.VariantCount
	if variants > 5 {
		variants = 5
	}
	score += 0.5 * float64(variants)

	if p.Price >= s.cfg.MidPriceLow && p.Price <= s.cfg.MidPriceHigh {
		score += 1.5
	}

	tags := len(p.Tags)
	if tags > 5 {
		tags = 5
	}
	score += 0.3 * float64(tags)

	return score
}

// Rank returns the products sorted by score descending. The input slice is
// not modified. Equal scores fall back to ID order before jitter is added,
// so repeated calls stay stable when jitter is disabled.
func (s *PopularityScorer) Rank(products []Product) []Product {
	type scored struct {
		product Product
		score   float64
	}

	ranked := make([]scored, 0, len(products))
	for _, p := range products {
		ranked = append(ranked, scored{product: p, score: s.Score(p)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].product.ID < ranked[j].product.ID
	})

	out := make([]Product, len(ranked))
	for i, r := range ranked {
		out[i] = r.product
	}
	return out
}
