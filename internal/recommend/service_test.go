// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

type fakeContentSource struct {
	scores []CandidateScore
	err    error
	calls  atomic.Int64
}

func (f *fakeContentSource) Query(_ context.Context, _ string, _ int) ([]CandidateScore, error) {
	f.calls.Add(1)
	return f.scores, f.err
}

type fakeRetailSource struct {
	scores []CandidateScore
	err    error
	calls  atomic.Int64
}

func (f *fakeRetailSource) Query(_ context.Context, _, _ string, _ int) ([]CandidateScore, error) {
	f.calls.Add(1)
	return f.scores, f.err
}

type fakeEnricher struct {
	products map[string]Product
	fail     bool
}

func (f *fakeEnricher) Get(_ context.Context, id string) Lookup {
	if f.fail {
		return Lookup{State: LookupResolverError, Err: errors.New("resolver down")}
	}
	p, ok := f.products[id]
	if !ok {
		return Lookup{State: LookupMiss}
	}
	return Lookup{Product: p, State: LookupHit}
}

type serviceFixture struct {
	content  *fakeContentSource
	retail   *fakeRetailSource
	enricher *fakeEnricher
	catalog  *fakeCatalog
	events   *fakeEventSource
}

func newServiceFixture() *serviceFixture {
	return &serviceFixture{
		content: &fakeContentSource{scores: []CandidateScore{
			{ProductID: "p1", Score: 0.9, Source: SourceContent},
			{ProductID: "p2", Score: 0.5, Source: SourceContent},
		}},
		retail: &fakeRetailSource{scores: []CandidateScore{
			{ProductID: "p2", Score: 0.8, Source: SourceRetail},
			{ProductID: "p3", Score: 0.6, Source: SourceRetail},
		}},
		enricher: &fakeEnricher{products: map[string]Product{
			"p1": {ID: "p1", Title: "One", Category: "VESTIDOS"},
			"p2": {ID: "p2", Title: "Two", Category: "FALDAS"},
			"p3": {ID: "p3", Title: "Three", Category: "ZAPATOS"},
		}},
		catalog: &fakeCatalog{products: catalogProducts(map[string]int{"VESTIDOS": 5, "FALDAS": 5})},
		events:  &fakeEventSource{events: map[string][]InteractionEvent{}},
	}
}

func (f *serviceFixture) build(t *testing.T) *Service {
	t.Helper()

	detector, err := NewCategoryDetector(nil)
	if err != nil {
		t.Fatalf("NewCategoryDetector: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Popularity.Jitter = 0

	rng := rand.New(rand.NewSource(42))
	scorer := NewPopularityScorer(cfg.Popularity, rng)
	sampler := NewDiversitySampler(scorer, rng)
	tracker := NewExclusionTracker(f.events, zerolog.Nop())
	fallback := NewFallbackOrchestrator(f.catalog, tracker, detector, sampler, scorer, cfg.Fallback, rng, zerolog.Nop())

	svc, err := NewService(cfg, f.content, f.retail, tracker, fallback, f.enricher, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGetRecommendationsRequiresUserID(t *testing.T) {
	svc := newServiceFixture().build(t)

	_, err := svc.GetRecommendations(context.Background(), Request{ProductID: "p1"})
	if err == nil {
		t.Fatal("expected validation error for missing user_id")
	}
}

func TestGetRecommendationsBlendsSources(t *testing.T) {
	fix := newServiceFixture()
	svc := fix.build(t)

	req := Request{UserID: "u1", ProductID: "p1", ContentWeight: 0.5, N: 3}
	got, err := svc.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	if got.Metadata.Strategy != StrategyBlended {
		t.Fatalf("expected %s, got %s", StrategyBlended, got.Metadata.Strategy)
	}
	if len(got.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got.Items))
	}
	// w=0.5: p2 = 0.5*0.5 + 0.5*0.8 = 0.65 leads.
	if got.Items[0].Product.ID != "p2" {
		t.Errorf("expected p2 first, got %s", got.Items[0].Product.ID)
	}
	if got.Items[0].Product.Title != "Two" {
		t.Errorf("expected enriched product, got %+v", got.Items[0].Product)
	}
	if len(got.Metadata.Sources) != 2 {
		t.Errorf("expected both sources in metadata, got %v", got.Metadata.Sources)
	}
	if got.Metadata.RequestID == "" {
		t.Error("expected generated request ID")
	}
}

func TestGetRecommendationsZeroWeightSkipsContent(t *testing.T) {
	fix := newServiceFixture()
	svc := fix.build(t)

	req := Request{UserID: "u1", ProductID: "p1", ContentWeight: 0, N: 2}
	if _, err := svc.GetRecommendations(context.Background(), req); err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	if fix.content.calls.Load() != 0 {
		t.Errorf("content source invoked %d times with zero weight", fix.content.calls.Load())
	}
	if fix.retail.calls.Load() != 1 {
		t.Errorf("retail source invoked %d times, want 1", fix.retail.calls.Load())
	}
}

func TestGetRecommendationsFullWeightSkipsRetail(t *testing.T) {
	fix := newServiceFixture()
	svc := fix.build(t)

	req := Request{UserID: "u1", ProductID: "p1", ContentWeight: 1, N: 2}
	if _, err := svc.GetRecommendations(context.Background(), req); err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	if fix.retail.calls.Load() != 0 {
		t.Errorf("retail source invoked %d times with full content weight", fix.retail.calls.Load())
	}
	if fix.content.calls.Load() != 1 {
		t.Errorf("content source invoked %d times, want 1", fix.content.calls.Load())
	}
}

func TestGetRecommendationsNoProductIDSkipsContent(t *testing.T) {
	fix := newServiceFixture()
	svc := fix.build(t)

	req := Request{UserID: "u1", ContentWeight: 0.5, N: 2}
	if _, err := svc.GetRecommendations(context.Background(), req); err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	if fix.content.calls.Load() != 0 {
		t.Errorf("content source invoked without an anchor product")
	}
}

func TestGetRecommendationsSourceFailuresDegrade(t *testing.T) {
	fix := newServiceFixture()
	fix.content = &fakeContentSource{err: errors.New("content down")}
	fix.retail = &fakeRetailSource{err: errors.New("retail down")}
	svc := fix.build(t)

	req := Request{UserID: "u1", ProductID: "p1", ContentWeight: 0.5, N: 4}
	got, err := svc.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}

	if len(got.Items) != 4 {
		t.Fatalf("expected 4 fallback items, got %d", len(got.Items))
	}
	if got.Metadata.Strategy == StrategyBlended {
		t.Errorf("expected a fallback strategy, got %s", got.Metadata.Strategy)
	}
	if len(got.Metadata.Sources) != 0 {
		t.Errorf("expected no sources in metadata, got %v", got.Metadata.Sources)
	}
}

func TestGetRecommendationsAllCandidatesExcluded(t *testing.T) {
	fix := newServiceFixture()
	svc := fix.build(t)

	req := Request{
		UserID:            "u1",
		ProductID:         "p1",
		ContentWeight:     0.5,
		N:                 3,
		ExcludeProductIDs: []string{"p1", "p2", "p3"},
	}
	got, err := svc.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	if got.Metadata.Strategy == StrategyBlended {
		t.Errorf("expected fallback strategy when every candidate is excluded, got %s", got.Metadata.Strategy)
	}
	for _, item := range got.Items {
		switch item.Product.ID {
		case "p1", "p2", "p3":
			t.Errorf("excluded product %s in result", item.Product.ID)
		}
	}
	if got.Metadata.Excluded != 3 {
		t.Errorf("expected 3 excluded, got %d", got.Metadata.Excluded)
	}
}

func TestGetRecommendationsBackfillsShortBlend(t *testing.T) {
	fix := newServiceFixture()
	svc := fix.build(t)

	// Three candidates total, six requested: the rest comes from fallback.
	req := Request{UserID: "u1", ProductID: "p1", ContentWeight: 0.5, N: 6}
	got, err := svc.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	if len(got.Items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(got.Items))
	}
	if got.Items[0].Strategy != StrategyBlended {
		t.Errorf("blended items must lead, got %s", got.Items[0].Strategy)
	}
	if got.Items[5].Strategy == StrategyBlended {
		t.Errorf("tail items must carry the backfill strategy")
	}
	ids := make(map[string]struct{})
	for _, item := range got.Items {
		if _, dup := ids[item.Product.ID]; dup {
			t.Errorf("duplicate ID %s", item.Product.ID)
		}
		ids[item.Product.ID] = struct{}{}
	}
}

func TestGetRecommendationsEnrichmentFailureKeepsStub(t *testing.T) {
	fix := newServiceFixture()
	fix.enricher = &fakeEnricher{fail: true}
	svc := fix.build(t)

	req := Request{UserID: "u1", ProductID: "p1", ContentWeight: 0.5, N: 3}
	got, err := svc.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	if len(got.Items) != 3 {
		t.Fatalf("stubs must count toward n, got %d items", len(got.Items))
	}
	for _, item := range got.Items {
		if !item.Incomplete {
			t.Errorf("item %s not marked incomplete", item.Product.ID)
		}
		if item.Product.ID == "" {
			t.Error("stub lost its product ID")
		}
	}
}

func TestGetRecommendationsAppliesDefaults(t *testing.T) {
	fix := newServiceFixture()
	fix.catalog = &fakeCatalog{products: catalogProducts(map[string]int{"VESTIDOS": 30, "FALDAS": 30})}
	svc := fix.build(t)

	got, err := svc.GetRecommendations(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(got.Items) != 10 {
		t.Errorf("expected default n of 10, got %d", len(got.Items))
	}

	got, err = svc.GetRecommendations(context.Background(), Request{UserID: "u1", N: 500})
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(got.Items) != 50 {
		t.Errorf("expected n capped at 50, got %d", len(got.Items))
	}
}

func TestGetRecommendationsHistoryExcluded(t *testing.T) {
	fix := newServiceFixture()
	fix.events = &fakeEventSource{events: map[string][]InteractionEvent{
		"u1": {{UserID: "u1", ProductID: "p1"}},
	}}
	svc := fix.build(t)

	req := Request{UserID: "u1", ProductID: "p1", ContentWeight: 0.5, N: 2}
	got, err := svc.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	for _, item := range got.Items {
		if item.Product.ID == "p1" {
			t.Error("historically interacted product p1 in result")
		}
	}
}

func TestGetRecommendationsPersonalizedFollowsHistory(t *testing.T) {
	fix := newServiceFixture()
	fix.content.scores = nil
	fix.retail.scores = nil
	fix.catalog = &fakeCatalog{products: catalogProducts(map[string]int{"ZAPATOS": 10, "BLUSAS": 10})}
	fix.events = &fakeEventSource{events: map[string][]InteractionEvent{
		"u1": {
			{UserID: "u1", ProductID: "ZAPATOS-0"},
			{UserID: "u1", ProductID: "ZAPATOS-1"},
			{UserID: "u1", ProductID: "ZAPATOS-2"},
			{UserID: "u1", ProductID: "ZAPATOS-3"},
			{UserID: "u1", ProductID: "ZAPATOS-4"},
		},
	}}
	svc := fix.build(t)

	got, err := svc.GetRecommendations(context.Background(), Request{UserID: "u1", N: 4})
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	if got.Metadata.Strategy != StrategyPersonalized {
		t.Fatalf("expected %s, got %s", StrategyPersonalized, got.Metadata.Strategy)
	}
	if len(got.Items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(got.Items))
	}
	history := map[string]struct{}{
		"ZAPATOS-0": {}, "ZAPATOS-1": {}, "ZAPATOS-2": {}, "ZAPATOS-3": {}, "ZAPATOS-4": {},
	}
	counts := make(map[string]int)
	for _, item := range got.Items {
		if _, bad := history[item.Product.ID]; bad {
			t.Errorf("historically interacted product %s in result", item.Product.ID)
		}
		counts[item.Product.Category]++
	}
	if counts["ZAPATOS"] <= counts["BLUSAS"] {
		t.Errorf("history category must dominate the allocation: %v", counts)
	}
}
