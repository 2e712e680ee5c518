// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/models"
	"github.com/tomtom215/nextbackup/internal/validation"
)

// Error codes.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeBackupFailed      = "BACKUP_FAILED"
	CodeUnsupportedEngine = "UNSUPPORTED_ENGINE"
	CodeStore             = "STORE_ERROR"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInvalidJSON       = "INVALID_JSON"
)

// maxBodyBytes bounds request bodies; settings payloads are tiny.
const maxBodyBytes = 64 << 10

// sanitizeLogValue removes control characters from strings to prevent log
// injection through client-supplied values.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func metadata(r *http.Request) models.Metadata {
	return models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
}

// respondJSON sends a JSON response. Backup state changes often, so
// nothing is cacheable.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   models.StatusSuccess,
		Data:     data,
		Metadata: metadata(r),
	})
}

// respondError sends an error envelope. err, when set, is logged but never
// sent to the client verbatim unless it is also the message.
func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", apiErr.Code).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   models.StatusError,
		Metadata: metadata(r),
		Error:    apiErr,
	})
}

func validationError(verr *validation.RequestValidationError) *models.APIError {
	fields := make(map[string]interface{}, len(verr.Fields))
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	return &models.APIError{
		Code:    CodeValidation,
		Message: verr.Error(),
		Details: map[string]interface{}{"fields": fields},
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
