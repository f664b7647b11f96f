// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/bookrec/internal/config"
)

// Router builds the chi route tree.
type Router struct {
	handler *Handler
	chiMW   *ChiMiddleware
}

// NewRouter creates a router. CORS and rate limiting come from cfg.Security.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	mwCfg := DefaultChiMiddlewareConfig()
	if len(cfg.Security.CORSOrigins) > 0 {
		mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	}
	mwCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled

	return &Router{
		handler: handler,
		chiMW:   NewChiMiddleware(mwCfg),
	}
}

// Setup returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMW.CORS())

	r.Handle("/metrics", promhttp.Handler())

	h := router.handler
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(PrometheusMetrics)
		r.Use(router.chiMW.RateLimit())

		r.Get("/health", h.Health)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/recommendations", h.Recommendations)
			r.Get("/neighbors", h.Neighbors)
			r.Get("/similarity/{otherID}", h.Similarity)
			r.Get("/stored", h.Stored)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/latest", h.LatestRun)
			r.Get("/{runID}/top-items", h.TopItems)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}
