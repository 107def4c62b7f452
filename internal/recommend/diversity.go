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

// DiversitySampler picks n products from a pool while covering as many
// distinct categories as possible. Selection is random but driven by a
// seedable source, so tests can pin outcomes.
type DiversitySampler struct {
	scorer *PopularityScorer

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewDiversitySampler creates a sampler. The scorer is used for the final
// backfill pass when category quotas cannot fill n.
func NewDiversitySampler(scorer *PopularityScorer, rng *rand.Rand) *DiversitySampler {
	return &DiversitySampler{scorer: scorer, rng: rng}
}

// Sample returns exactly min(n, |pool \ exclude|) products with no
// duplicate IDs. Allocation: choose k = min(n, non-empty categories)
// categories, give each a quota of max(1, n/k), sample without
// replacement, then backfill from unchosen categories and finally from the
// popularity-ranked pool. Never pads with excluded or duplicate IDs.
func (s *DiversitySampler) Sample(pool []Product, n int, exclude map[string]struct{}) []Product {
	if n <= 0 || len(pool) == 0 {
		return nil
	}

	available := filterExcluded(pool, exclude)
	if len(available) <= n {
		return available
	}

	buckets := groupByCategory(available)
	categories := sortedKeys(buckets)

	k := len(categories)
	if k > n {
		k = n
	}

	chosen := s.chooseCategories(categories, k)
	chosenSet := make(map[string]struct{}, len(chosen))
	for _, c := range chosen {
		chosenSet[c] = struct{}{}
	}

	perCategory := n / k
	if perCategory < 1 {
		perCategory = 1
	}

	selected := make([]Product, 0, n)
	selectedIDs := make(map[string]struct{}, n)
	for _, cat := range chosen {
		for _, p := range s.sampleBucket(buckets[cat], perCategory) {
			if len(selected) == n {
				break
			}
			selected = append(selected, p)
			selectedIDs[p.ID] = struct{}{}
		}
	}

	// Quota shortfall: draw from the categories not chosen in step 2.
	if len(selected) < n {
		var rest []Product
		for _, cat := range categories {
			if _, ok := chosenSet[cat]; ok {
				continue
			}
			rest = append(rest, buckets[cat]...)
		}
		selected = appendFresh(selected, s.shuffled(rest), selectedIDs, n)
	}

	// Still short: popularity-ranked backfill ignoring category.
	if len(selected) < n {
		selected = appendFresh(selected, s.scorer.Rank(available), selectedIDs, n)
	}

	return selected
}

// chooseCategories picks k categories uniformly at random.
func (s *DiversitySampler) chooseCategories(categories []string, k int) []string {
	if k >= len(categories) {
		return categories
	}
	shuffled := make([]string, len(categories))
	copy(shuffled, categories)
	s.rngMu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.rngMu.Unlock()
	return shuffled[:k]
}

// sampleBucket picks up to quota products without replacement.
func (s *DiversitySampler) sampleBucket(bucket []Product, quota int) []Product {
	if quota >= len(bucket) {
		return bucket
	}
	return s.shuffled(bucket)[:quota]
}

// shuffled returns a shuffled copy of products.
func (s *DiversitySampler) shuffled(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	s.rngMu.Lock()
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	s.rngMu.Unlock()
	return out
}

// appendFresh appends candidates not yet selected until limit is reached.
func appendFresh(selected []Product, candidates []Product, selectedIDs map[string]struct{}, limit int) []Product {
	for _, p := range candidates {
		if len(selected) == limit {
			break
		}
		if _, ok := selectedIDs[p.ID]; ok {
			continue
		}
		selected = append(selected, p)
		selectedIDs[p.ID] = struct{}{}
	}
	return selected
}

// filterExcluded removes excluded IDs, preserving order.
func filterExcluded(pool []Product, exclude map[string]struct{}) []Product {
	out := make([]Product, 0, len(pool))
	for _, p := range pool {
		if _, ok := exclude[p.ID]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

// groupByCategory buckets products by category. Uncategorized products
// share the empty-string bucket.
func groupByCategory(products []Product) map[string][]Product {
	buckets := make(map[string][]Product)
	for _, p := range products {
		buckets[p.Category] = append(buckets[p.Category], p)
	}
	return buckets
}

// sortedKeys returns bucket keys in lexical order so iteration never
// depends on map order.
func sortedKeys(buckets map[string][]Product) []string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
