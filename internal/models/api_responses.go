// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse wraps every API payload. Error is set only when Status is
// "error".
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes the response itself.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	// DurationMs is the handler time; for a manual backup this is the
	// whole run.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// APIError is a structured error.
//
// Codes used by the API:
//   - VALIDATION_ERROR: rejected input
//   - BACKUP_FAILED: a backup phase failed, Details["phase"] names it
//   - UNSUPPORTED_ENGINE: the configured database engine has no exporter
//   - STORE_ERROR: the config store could not be read or written
//   - RATE_LIMIT_EXCEEDED: too many manual triggers
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
