// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

// Package sources contains the HTTP clients for Vitrina's upstream
// services: the content-similarity service, the retail recommendation
// API and the storefront catalog.
//
// All clients share the same resilience layer: per-call timeouts from the
// caller's context, bounded exponential-backoff retry for transient
// failures, and a circuit breaker per upstream so a dead service fails
// fast instead of burning the request budget. Client errors surface as
// ordinary error returns; the recommendation core treats them as empty
// contributions.
package sources
