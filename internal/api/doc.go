// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

/*
Package api provides the HTTP surface for the recommendation service
using the Chi router.

# Endpoints

	POST   /api/v1/recommendations          - get recommendations for a user
	GET    /api/v1/products/{id}            - resolve one product through the cache
	GET    /api/v1/cache/stats              - product cache hit/miss counters
	POST   /api/v1/cache/preload            - warm the cache from the catalog
	DELETE /api/v1/cache/products/{id}      - invalidate one cached product
	GET    /healthz/live                    - liveness probe
	GET    /healthz/ready                   - readiness probe
	GET    /metrics                         - Prometheus metrics

All /api/v1 responses share a JSON envelope with status, data, optional
error, and metadata carrying the request ID and timestamp.

# Middleware

The router applies request-ID propagation with logging context, real-IP
extraction, panic recovery, CORS, per-IP rate limiting, and Prometheus
request instrumentation.
*/
package api
