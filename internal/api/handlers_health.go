// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/nextbackup/internal/models"
)

// Health reports overall status. It is degraded when the config store
// cannot be read; it never fails because a backup failed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	reachable := h.storeReachable(r)

	health := models.HealthStatus{
		Status:         "healthy",
		Version:        h.version,
		StoreReachable: reachable,
		Uptime:         time.Since(h.startTime).Seconds(),
	}
	if !reachable {
		health.Status = "degraded"
	} else if status, err := h.backups.Status(r.Context()); err == nil {
		health.BackupStatus = string(status)
	}
	respondSuccess(w, r, health)
}

// HealthLive answers as long as the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, map[string]string{"status": "alive"})
}

// HealthReady fails with 503 while the config store is unreachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.storeReachable(r) {
		respondError(w, r, http.StatusServiceUnavailable,
			&models.APIError{Code: CodeStore, Message: "Config store unavailable"}, nil)
		return
	}
	respondSuccess(w, r, map[string]string{"status": "ready"})
}

func (h *Handler) storeReachable(r *http.Request) bool {
	if h.settings == nil {
		return false
	}
	_, err := h.settings.Load(r.Context())
	return err == nil
}
