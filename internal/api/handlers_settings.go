// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/nextbackup/internal/models"
	"github.com/tomtom215/nextbackup/internal/settings"
	"github.com/tomtom215/nextbackup/internal/validation"
)

// GetSettings returns the stored backup settings, defaults filled in.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Load(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError,
			&models.APIError{Code: CodeStore, Message: "Failed to read backup settings"}, err)
		return
	}
	respondSuccess(w, r, toSettingsModel(cfg))
}

// PutSettings validates and stores all three settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req models.BackupSettings
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest,
			&models.APIError{Code: CodeInvalidJSON, Message: "Request body must be a JSON settings object"}, nil)
		return
	}

	cfg := settings.BackupConfiguration{
		FileBackupPath:     req.FileBackupFolder,
		DatabaseBackupPath: req.DBBackupFolder,
		IntervalHours:      req.BackupInterval,
	}
	if err := h.settings.Save(r.Context(), cfg); err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			respondError(w, r, http.StatusBadRequest, validationError(verr), nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError,
			&models.APIError{Code: CodeStore, Message: "Failed to save backup settings"}, err)
		return
	}

	saved, err := h.settings.Load(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError,
			&models.APIError{Code: CodeStore, Message: "Failed to read backup settings"}, err)
		return
	}
	respondSuccess(w, r, toSettingsModel(saved))
}

// SaveInterval stores only the interval. The value may be sent as a
// number or a string; 0, negatives and non-numeric text are rejected.
func (h *Handler) SaveInterval(w http.ResponseWriter, r *http.Request) {
	var req models.IntervalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest,
			&models.APIError{Code: CodeInvalidJSON, Message: "Request body must be a JSON object"}, nil)
		return
	}

	hours, err := h.settings.SaveInterval(r.Context(), req.Raw())
	if err != nil {
		if errors.Is(err, settings.ErrInvalidInterval) {
			respondError(w, r, http.StatusBadRequest, &models.APIError{
				Code:    CodeValidation,
				Message: err.Error(),
				Details: map[string]interface{}{"field": "backup_interval"},
			}, nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError,
			&models.APIError{Code: CodeStore, Message: "Failed to save backup interval"}, err)
		return
	}
	respondSuccess(w, r, map[string]int{"backup_interval": hours})
}

func toSettingsModel(cfg settings.BackupConfiguration) models.BackupSettings {
	return models.BackupSettings{
		FileBackupFolder: cfg.FileBackupPath,
		DBBackupFolder:   cfg.DatabaseBackupPath,
		BackupInterval:   cfg.IntervalHours,
	}
}
