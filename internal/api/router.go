// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/nextbackup/internal/middleware"
	"github.com/tomtom215/nextbackup/internal/models"
)

// RouterConfig holds the HTTP knobs that are not handler state.
type RouterConfig struct {
	// BackupNowLimit manual triggers are allowed per client IP within
	// BackupNowWindow. Zero disables the limit.
	BackupNowLimit  int
	BackupNowWindow time.Duration
}

// DefaultRouterConfig returns the router defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		BackupNowLimit:  6,
		BackupNowWindow: time.Minute,
	}
}

// NewRouter builds the chi router for h.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/backup", func(r chi.Router) {
		r.With(backupNowLimiter(cfg)).Post("/now", h.BackupNow)
		r.Get("/status", h.BackupStatus)
		r.Get("/history", h.BackupHistory)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)
		r.Post("/settings/interval", h.SaveInterval)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound,
			&models.APIError{Code: "NOT_FOUND", Message: "Route not found"}, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed,
			&models.APIError{Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed"}, nil)
	})

	return r
}

func backupNowLimiter(cfg RouterConfig) func(http.Handler) http.Handler {
	if cfg.BackupNowLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := cfg.BackupNowWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		cfg.BackupNowLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, &models.APIError{
				Code:    CodeRateLimit,
				Message: "Too many manual backup requests, try again later",
			}, nil)
		}),
	)
}
