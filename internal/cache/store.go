// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStoreClosed is returned by store operations after Close.
var ErrStoreClosed = errors.New("cache store closed")

// Store is a byte-oriented key/value store with per-entry TTL.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a value. The second return is false when the key is
	// absent or expired; err is reserved for store failures.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value that expires after ttl. A non-positive ttl means
	// the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}

// StoreType selects the store implementation.
type StoreType string

const (
	// StoreTypeMemory is the in-process map store. Contents are lost on
	// restart.
	StoreTypeMemory StoreType = "memory"

	// StoreTypeBadger is the BadgerDB store. Contents survive restarts,
	// so a warm cache does not need a preload after deploy.
	StoreTypeBadger StoreType = "badger"
)

// StoreConfig holds configuration for creating a store.
type StoreConfig struct {
	// Type selects the implementation. Defaults to memory.
	Type StoreType `json:"type" koanf:"type"`

	// Path is the BadgerDB directory. Required for the badger type.
	Path string `json:"path,omitempty" koanf:"path"`

	// CleanupInterval is how often the memory store sweeps expired
	// entries, and how often the badger store runs value-log GC.
	CleanupInterval time.Duration `json:"cleanup_interval" koanf:"cleanup_interval"`
}

// NewStore creates a store from the configuration.
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	switch cfg.Type {
	case StoreTypeBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger store requires a path")
		}
		return NewBadgerStore(cfg.Path)
	case StoreTypeMemory, "":
		return NewMemoryStore(cfg.CleanupInterval), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// Verify interface implementations at compile time
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
)
