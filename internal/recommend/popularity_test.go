// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"math/rand"
	"strings"
	"testing"
)

func newTestScorer(jitter float64) *PopularityScorer {
	cfg := PopularityConfig{MidPriceLow: 15, MidPriceHigh: 120, Jitter: jitter}
	return NewPopularityScorer(cfg, rand.New(rand.NewSource(42)))
}

func TestScoreComponents(t *testing.T) {
	scorer := newTestScorer(0)

	tests := []struct {
		name    string
		product Product
		want    float64
	}{
		{
			name:    "empty product",
			product: Product{ID: "p1"},
			want:    0,
		},
		{
			name:    "image only",
			product: Product{ID: "p1", ImageURL: "https://img.example/p1.jpg"},
			want:    2.0,
		},
		{
			name:    "description 200 chars",
			product: Product{ID: "p1", Description: strings.Repeat("x", 200)},
			want:    2.0,
		},
		{
			name:    "description capped at 3.0",
			product: Product{ID: "p1", Description: strings.Repeat("x", 1000)},
			want:    3.0,
		},
		{
			name:    "variants capped at 5",
			product: Product{ID: "p1", VariantCount: 8},
			want:    2.5,
		},
		{
			name:    "mid price band",
			product: Product{ID: "p1", Price: 50},
			want:    1.5,
		},
		{
			name:    "price outside band",
			product: Product{ID: "p1", Price: 500},
			want:    0,
		},
		{
			name:    "tags capped at 5",
			product: Product{ID: "p1", Tags: []string{"a", "b", "c", "d", "e", "f", "g"}},
			want:    1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.product)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	scorer := newTestScorer(0)

	products := []Product{
		{ID: "bare"},
		{ID: "rich", ImageURL: "img", Price: 50, VariantCount: 3, Tags: []string{"a", "b"}},
		{ID: "mid", ImageURL: "img"},
	}

	got := scorer.Rank(products)

	want := []string{"rich", "mid", "bare"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestRankTieBreaksByID(t *testing.T) {
	scorer := newTestScorer(0)

	products := []Product{
		{ID: "zeta", Price: 50},
		{ID: "alpha", Price: 50},
		{ID: "mike", Price: 50},
	}

	got := scorer.Rank(products)

	want := []string{"alpha", "mike", "zeta"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	scorer := newTestScorer(0)

	products := []Product{
		{ID: "b"},
		{ID: "a", ImageURL: "img"},
	}

	scorer.Rank(products)

	if products[0].ID != "b" || products[1].ID != "a" {
		t.Errorf("input reordered: %s, %s", products[0].ID, products[1].ID)
	}
}

func TestScoreJitterStaysWithinBound(t *testing.T) {
	scorer := newTestScorer(0.25)
	p := Product{ID: "p1", Price: 50}

	for i := 0; i < 100; i++ {
		got := scorer.Score(p)
		if got < 1.5 || got >= 1.75 {
			t.Fatalf("score %v outside [1.5, 1.75)", got)
		}
	}
}
