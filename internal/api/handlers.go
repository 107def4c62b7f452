// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/vitrina-io/vitrina/internal/cache"
	"github.com/vitrina-io/vitrina/internal/logging"
	"github.com/vitrina-io/vitrina/internal/metrics"
	"github.com/vitrina-io/vitrina/internal/recommend"
)

// Recommender produces recommendations for a request.
type Recommender interface {
	GetRecommendations(ctx context.Context, req recommend.Request) (*recommend.Result, error)
}

// ProductIDLister enumerates the catalog's product IDs for preloads.
type ProductIDLister interface {
	ProductIDs(ctx context.Context) ([]string, error)
}

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	recommender Recommender
	cache       *cache.ProductCache
	catalog     ProductIDLister
	logger      zerolog.Logger
}

// NewHandler creates the handler set. catalog may be nil; preload then
// requires explicit product IDs in the request body.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(recommender Recommender, productCache *cache.ProductCache, catalog ProductIDLister, logger zerolog.Logger) *Handler {
	return &Handler{
		recommender: recommender,
		cache:       productCache,
		catalog:     catalog,
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// Recommendations handles POST /api/v1/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = logging.RequestIDFromContext(r.Context())
	}

	start := time.Now()
	result, err := h.recommender.GetRecommendations(r.Context(), req)
	if err != nil {
		// The service only errors on request validation.
		metrics.RecordRecommendation("invalid", "error", time.Since(start))
		respondError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), err)
		return
	}

	strategy := string(result.Metadata.Strategy)
	metrics.RecordRecommendation(strategy, "ok", time.Since(start))
	metrics.RecommendationItemsReturned.Observe(float64(len(result.Items)))
	if result.Metadata.Strategy != recommend.StrategyBlended {
		metrics.RecommendationFallbacks.WithLabelValues(strategy).Inc()
	}

	respondJSON(w, r, http.StatusOK, result)
}

// Product handles GET /api/v1/products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "product id is required", nil)
		return
	}

	lookup := h.cache.Get(r.Context(), id)
	switch lookup.State {
	case recommend.LookupHit:
		respondJSON(w, r, http.StatusOK, lookup.Product)
	case recommend.LookupMiss:
		respondError(w, r, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	default:
		respondError(w, r, http.StatusBadGateway, "CATALOG_UNAVAILABLE", "catalog lookup failed", lookup.Err)
	}
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.cache.Stats())
}

// preloadRequest is the body for POST /api/v1/cache/preload. ProductIDs
// may be empty to preload the whole catalog.
type preloadRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// CachePreload handles POST /api/v1/cache/preload.
func (h *Handler) CachePreload(w http.ResponseWriter, r *http.Request) {
	var req preloadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", err)
			return
		}
	}

	ids := req.ProductIDs
	if len(ids) == 0 {
		if h.catalog == nil {
			respondError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "product_ids is required when no catalog is configured", nil)
			return
		}
		var err error
		ids, err = h.catalog.ProductIDs(r.Context())
		if err != nil {
			respondError(w, r, http.StatusBadGateway, "CATALOG_UNAVAILABLE", "listing catalog products failed", err)
			return
		}
	}

	result, err := h.cache.Preload(r.Context(), ids)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "PRELOAD_INTERRUPTED", "preload did not complete", err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// CacheInvalidate handles DELETE /api/v1/cache/products/{id}.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "product id is required", nil)
		return
	}
	if err := h.cache.Invalidate(r.Context(), id); err != nil {
		respondError(w, r, http.StatusInternalServerError, "CACHE_ERROR", "invalidation failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthLive handles GET /healthz/live. The process is alive if it can
// answer at all.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady handles GET /healthz/ready. Readiness requires the cache
// and recommender to be wired.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"cache":       "ok",
		"recommender": "ok",
	}
	status := http.StatusOK
	if h.cache == nil {
		components["cache"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if h.recommender == nil {
		components["recommender"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, r, status, components)
}
