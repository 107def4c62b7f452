// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Recommendation request latency, throughput, and strategy mix
// - Upstream recommendation source performance (content/retail/catalog)
// - Product cache efficiency and preload progress
// - Circuit breaker state for upstream clients
// - Interaction event ingestion

var (
	// Recommendation Metrics
	RecommendationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"strategy", "status"}, // strategy: blended, query_driven, personalized, cold_start
	)

	RecommendationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_request_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"strategy"},
	)

	RecommendationItemsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_items_returned",
			Help:    "Number of products returned per recommendation request",
			Buckets: []float64{1, 5, 10, 20, 30, 50},
		},
	)

	RecommendationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_fallbacks_total",
			Help: "Total number of requests served fully or partially from the fallback catalog",
		},
		[]string{"strategy"},
	)

	// Upstream Source Metrics
	SourceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_request_duration_seconds",
			Help:    "Duration of upstream source requests in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"source"}, // source: content, retail, catalog
	)

	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_errors_total",
			Help: "Total number of upstream source request failures",
		},
		[]string{"source"},
	)

	SourceCandidatesReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_candidates_total",
			Help: "Total number of candidate products returned by upstream sources",
		},
		[]string{"source"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Product Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // cache_type: product
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheResolverErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_resolver_errors_total",
			Help: "Total number of catalog resolver failures during cache fills",
		},
	)

	CachePreloadProducts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_preload_products_total",
			Help: "Total number of products processed by preload runs",
		},
		[]string{"outcome"}, // outcome: loaded, failed
	)

	CachePreloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cache_preload_duration_seconds",
			Help:    "Duration of cache preload runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate-limited API requests",
		},
	)

	// Interaction Event Metrics
	InteractionsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_ingested_total",
			Help: "Total number of interaction events consumed from the event bus",
		},
		[]string{"outcome"}, // outcome: stored, malformed, invalid, retried
	)

	InteractionsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interactions_pruned_total",
			Help: "Total number of interaction events removed by retention pruning",
		},
	)
)

// RecordRecommendation records the outcome of a single recommendation request.
func RecordRecommendation(strategy, status string, duration time.Duration) {
	RecommendationRequestsTotal.WithLabelValues(strategy, status).Inc()
	RecommendationRequestDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordSourceRequest records an upstream source call.
func RecordSourceRequest(source string, duration time.Duration, candidates int, err error) {
	SourceRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		SourceErrors.WithLabelValues(source).Inc()
		return
	}
	SourceCandidatesReturned.WithLabelValues(source).Add(float64(candidates))
}

// RecordCacheAccess records a product cache lookup outcome.
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

// RecordPreload records the outcome of a cache preload run.
func RecordPreload(loaded, failed int, duration time.Duration) {
	CachePreloadProducts.WithLabelValues("loaded").Add(float64(loaded))
	CachePreloadProducts.WithLabelValues("failed").Add(float64(failed))
	CachePreloadDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetBreakerState publishes the current state of an upstream circuit breaker.
// State names follow gobreaker's String() values.
func SetBreakerState(name, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}

// RecordInteraction records an ingested interaction event by outcome.
func RecordInteraction(outcome string) {
	InteractionsIngested.WithLabelValues(outcome).Inc()
}
