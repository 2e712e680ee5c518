// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/nextbackup/internal/backup"
	"github.com/tomtom215/nextbackup/internal/dbexport"
	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/models"
)

// BackupNow runs a manual backup and answers once it has finished. A
// request arriving while a run is active joins that run.
func (h *Handler) BackupNow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := h.backups.PerformBackup(r.Context(), backup.TriggerManual)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, backupError(err), err)
		return
	}

	meta := metadata(r)
	meta.DurationMs = time.Since(start).Milliseconds()
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   models.StatusSuccess,
		Data:     res,
		Metadata: meta,
	})
}

// backupError maps a PerformBackup failure to an API error carrying the
// failing phase.
func backupError(err error) *models.APIError {
	apiErr := &models.APIError{
		Code:    CodeBackupFailed,
		Message: err.Error(),
		Details: map[string]interface{}{},
	}
	var phaseErr *backup.Error
	if errors.As(err, &phaseErr) {
		apiErr.Details["phase"] = string(phaseErr.Phase)
	}
	var unsupported *dbexport.UnsupportedEngineError
	if errors.As(err, &unsupported) {
		apiErr.Code = CodeUnsupportedEngine
		apiErr.Details["engine"] = unsupported.Engine
	}
	return apiErr
}

// BackupStatus returns the persisted status and the last successful run.
func (h *Handler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.backups.Status(ctx)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError,
			&models.APIError{Code: CodeStore, Message: "Failed to read backup status"}, err)
		return
	}
	last, err := h.backups.LastBackupTime(ctx)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError,
			&models.APIError{Code: CodeStore, Message: "Failed to read last backup time"}, err)
		return
	}

	out := models.BackupStatus{
		Status:     string(status),
		InProgress: h.backups.InProgress(),
	}
	if !last.IsZero() {
		t := last.UTC()
		out.LastBackupTime = &t
	}
	if h.scheduler != nil {
		next, err := h.scheduler.NextRun(ctx)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to compute next scheduled backup")
		} else {
			n := next.UTC()
			out.NextBackupTime = &n
		}
	}
	respondSuccess(w, r, out)
}

// BackupHistory returns recent runs, newest first.
func (h *Handler) BackupHistory(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    CodeValidation,
			Message: "limit must be between 1 and 1000",
		}, nil)
		return
	}

	runs, err := h.backups.History(r.Context(), limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError,
			&models.APIError{Code: CodeStore, Message: "Failed to read backup history"}, err)
		return
	}
	respondSuccess(w, r, runs)
}
