// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitrina-io/vitrina/internal/recommend"
)

type fakeResolver struct {
	products map[string]recommend.Product
	err      error
	calls    atomic.Int64
}

func (f *fakeResolver) Resolve(_ context.Context, id string) (recommend.Product, error) {
	f.calls.Add(1)
	if f.err != nil {
		return recommend.Product{}, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return recommend.Product{}, recommend.ErrProductNotFound
	}
	return p, nil
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store broken")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store broken")
}

func (failingStore) Delete(context.Context, string) error { return errors.New("store broken") }
func (failingStore) Close() error                         { return nil }

func newTestProductCache(t *testing.T, store Store, resolver recommend.ProductResolver) *ProductCache {
	t.Helper()
	c, err := NewProductCache(DefaultConfig(), store, resolver, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewProductCache: %v", err)
	}
	return c
}

func TestGetCacheAside(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	resolver := &fakeResolver{products: map[string]recommend.Product{
		"p1": {ID: "p1", Title: "One", Price: 40},
	}}
	c := newTestProductCache(t, store, resolver)
	ctx := context.Background()

	// First access: miss, resolver fetch, write-back.
	lookup := c.Get(ctx, "p1")
	if lookup.State != recommend.LookupHit {
		t.Fatalf("first Get state = %s, want hit", lookup.State)
	}
	if lookup.Product.Title != "One" {
		t.Errorf("got %+v", lookup.Product)
	}
	if resolver.calls.Load() != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.calls.Load())
	}

	// Second access: served from the store, no resolver call.
	lookup = c.Get(ctx, "p1")
	if lookup.State != recommend.LookupHit {
		t.Fatalf("second Get state = %s, want hit", lookup.State)
	}
	if resolver.calls.Load() != 1 {
		t.Errorf("resolver called again on cached product: %d", resolver.calls.Load())
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
	if stats.HitRatio != 0.5 {
		t.Errorf("hit ratio = %v, want 0.5", stats.HitRatio)
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	c := newTestProductCache(t, store, &fakeResolver{})

	lookup := c.Get(context.Background(), "absent")
	if lookup.State != recommend.LookupMiss {
		t.Errorf("state = %s, want miss", lookup.State)
	}
}

func TestGetResolverError(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	c := newTestProductCache(t, store, &fakeResolver{err: errors.New("upstream 503")})

	lookup := c.Get(context.Background(), "p1")
	if lookup.State != recommend.LookupResolverError {
		t.Fatalf("state = %s, want resolver_error", lookup.State)
	}
	if lookup.Err == nil {
		t.Error("expected cause in lookup")
	}
	if c.Stats().ResolverErrors != 1 {
		t.Errorf("resolver errors = %d, want 1", c.Stats().ResolverErrors)
	}
}

func TestGetNilResolver(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	c := newTestProductCache(t, store, nil)
	ctx := context.Background()

	if lookup := c.Get(ctx, "p1"); lookup.State != recommend.LookupMiss {
		t.Errorf("state = %s, want miss", lookup.State)
	}

	// But warmed entries are still served.
	if err := c.Put(ctx, recommend.Product{ID: "p1", Title: "One"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if lookup := c.Get(ctx, "p1"); lookup.State != recommend.LookupHit {
		t.Errorf("state after Put = %s, want hit", lookup.State)
	}
}

func TestGetStoreFailureDegradesToResolver(t *testing.T) {
	resolver := &fakeResolver{products: map[string]recommend.Product{
		"p1": {ID: "p1", Title: "One"},
	}}
	c := newTestProductCache(t, failingStore{}, resolver)

	lookup := c.Get(context.Background(), "p1")
	if lookup.State != recommend.LookupHit {
		t.Fatalf("state = %s, want hit despite broken store", lookup.State)
	}
	if resolver.calls.Load() != 1 {
		t.Errorf("resolver calls = %d, want 1", resolver.calls.Load())
	}
}

func TestGetCorruptEntryDropsAndRefetches(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	resolver := &fakeResolver{products: map[string]recommend.Product{
		"p1": {ID: "p1", Title: "One"},
	}}
	c := newTestProductCache(t, store, resolver)
	ctx := context.Background()

	if err := store.Set(ctx, "product:p1", []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	lookup := c.Get(ctx, "p1")
	if lookup.State != recommend.LookupHit {
		t.Fatalf("state = %s, want hit via resolver", lookup.State)
	}
	if resolver.calls.Load() != 1 {
		t.Errorf("resolver calls = %d, want 1", resolver.calls.Load())
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	resolver := &fakeResolver{products: map[string]recommend.Product{
		"p1": {ID: "p1", Title: "One"},
	}}
	c := newTestProductCache(t, store, resolver)
	ctx := context.Background()

	c.Get(ctx, "p1")
	if err := c.Invalidate(ctx, "p1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	c.Get(ctx, "p1")

	if resolver.calls.Load() != 2 {
		t.Errorf("resolver calls = %d, want 2 after invalidation", resolver.calls.Load())
	}
}

func TestPreload(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	products := make(map[string]recommend.Product)
	var ids []string
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("p%d", i)
		products[id] = recommend.Product{ID: id, Title: id}
		ids = append(ids, id)
	}
	resolver := &fakeResolver{products: products}

	cfg := DefaultConfig()
	cfg.PreloadRate = 1000
	cfg.PreloadBurst = 100
	c, err := NewProductCache(cfg, store, resolver, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewProductCache: %v", err)
	}

	result, err := c.Preload(context.Background(), append(ids, "absent"))
	if err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if result.Loaded != 10 {
		t.Errorf("loaded = %d, want 10", result.Loaded)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}

	// Preloaded products are now cache hits.
	before := resolver.calls.Load()
	if lookup := c.Get(context.Background(), "p3"); lookup.State != recommend.LookupHit {
		t.Errorf("state = %s, want hit", lookup.State)
	}
	if resolver.calls.Load() != before {
		t.Error("preloaded product went to the resolver")
	}
}

func TestPreloadCanceled(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	cfg := DefaultConfig()
	cfg.PreloadRate = 0.001 // Force the limiter to block.
	cfg.PreloadBurst = 1
	c, err := NewProductCache(cfg, store, &fakeResolver{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewProductCache: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Preload(ctx, []string{"p1", "p2", "p3"}); err == nil {
		t.Error("expected error from canceled preload")
	}
}

func TestWarm(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	c := newTestProductCache(t, store, nil)

	result, err := c.Warm(context.Background(), []recommend.Product{
		{ID: "p1", Title: "One"},
		{Title: "no id"},
	})
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if result.Loaded != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 loaded and 1 failed", result)
	}
}

func TestDefaultSingleton(t *testing.T) {
	if Default() != nil {
		t.Fatal("expected nil default before SetDefault")
	}

	store := NewMemoryStore(time.Minute)
	defer store.Close()
	c := newTestProductCache(t, store, nil)

	SetDefault(c)
	defer SetDefault(nil)

	if Default() != c {
		t.Error("Default did not return the installed cache")
	}
}
