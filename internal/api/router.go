// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitrina-io/vitrina/internal/config"
)

// Router assembles the HTTP routes and middleware.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router for the given handlers and server config.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the chi handler tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(requestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Probes and metrics stay outside the rate limit so monitoring is
	// never throttled.
	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(router.cfg.RateLimitRequests, router.cfg.RateLimitWindow))
		r.Use(prometheusMetrics)

		r.Post("/recommendations", router.handler.Recommendations)
		r.Get("/products/{id}", router.handler.Product)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", router.handler.CacheStats)
			r.Post("/preload", router.handler.CachePreload)
			r.Delete("/products/{id}", router.handler.CacheInvalidate)
		})
	})

	return r
}
