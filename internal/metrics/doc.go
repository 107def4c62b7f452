// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring performance, errors, and system health.

# Overview

The package provides metrics for:
  - Recommendation request throughput, latency, and strategy distribution
  - Upstream source (content/retail/catalog) latency and error rates
  - Product cache hit/miss rates and preload outcomes
  - Circuit breaker states for upstream clients
  - Interaction event ingestion from NATS

# Usage

Metrics are registered automatically via promauto at package initialization.
Record helpers wrap the common label combinations:

	start := time.Now()
	result, err := svc.GetRecommendations(ctx, req)
	metrics.RecordRecommendation(string(result.Strategy), status, time.Since(start))

The metrics endpoint is exposed by the API server at /metrics using
promhttp.Handler.
*/
package metrics
