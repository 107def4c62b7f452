// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

// Package cache provides the product cache that sits between the
// recommendation core and the authoritative catalog resolver.
//
// The package has three layers:
//
//   - Store: a byte-oriented key/value store with per-entry TTL. Two
//     implementations exist, an in-memory map store and a BadgerDB store
//     that survives restarts.
//   - ProductCache: the cache-aside read path. Lookups hit the store
//     first and fall through to the ProductResolver on miss, writing the
//     resolved product back with the configured TTL.
//   - Preloader: bulk cache warming from the catalog, rate-limited so a
//     preload never saturates the upstream API.
//
// Cache failures never propagate to callers as request failures. A broken
// store degrades every lookup to a resolver round-trip; a broken resolver
// degrades the lookup to a miss or an incomplete stub further up.
package cache
