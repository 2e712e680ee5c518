// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package middleware provides the HTTP middleware used by the API router.

  - RequestID: assigns or propagates X-Request-ID and stores it in the
    request context so logging.Ctx(ctx) tags every line with it
  - PrometheusMetrics: counts requests and observes latency, labelled by
    chi route pattern

Both are standard func(http.Handler) http.Handler middleware and compose
with chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
