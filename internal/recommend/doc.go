// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

// Package recommend implements the recommendation core: candidate blending,
// exclusion tracking, category detection, diversity sampling and the
// fallback strategy chain.
//
// # Architecture
//
// The package has no dependencies on other internal packages. All
// collaborators (candidate sources, the interaction event log, the product
// catalog and the enrichment cache) are consumed through interfaces defined
// here, so the package can be tested with in-memory fakes and wired with
// real clients in cmd/server.
//
// # Degradation model
//
// Every collaborator call is best-effort. A source that fails or times out
// contributes an empty candidate list; an unavailable event log yields an
// empty exclusion set; an unresolvable product becomes an incomplete stub.
// The only error GetRecommendations returns is request validation failure.
//
// # Determinism
//
// All randomness (cold-start strategy choice, diversity sampling, popularity
// jitter) flows from a single seedable source so tests can pin outcomes.
// Within one request the result order is fully determined by the combiner's
// sort and the sampler's allocation, never by goroutine completion order.
package recommend
