// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package cache

import (
	"context"
	"testing"
	"time"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestBadgerStoreSetGet(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, found, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected key to be found")
	}
	if string(got) != "v1" {
		t.Errorf("got %q, want v1", got)
	}
}

func TestBadgerStoreMissingKey(t *testing.T) {
	s := newTestBadgerStore(t)

	_, found, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected miss for absent key")
	}
}

func TestBadgerStoreTTLExpiry(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k1", []byte("v1"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Badger TTL resolution is one second.
	time.Sleep(1200 * time.Millisecond)

	_, found, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected expired entry to be a miss")
	}
}

func TestBadgerStoreDelete(t *testing.T) {
	s := newTestBadgerStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete of absent key: %v", err)
	}

	_, found, _ := s.Get(ctx, "k1")
	if found {
		t.Error("deleted key still found")
	}
}

func TestBadgerStoreRunGC(t *testing.T) {
	s := newTestBadgerStore(t)

	// Nothing to collect on a fresh store; ErrNoRewrite maps to nil.
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC on empty store: %v", err)
	}
}
