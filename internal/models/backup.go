// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// BackupStatus is the payload of GET /api/v1/backup/status.
type BackupStatus struct {
	Status         string     `json:"status"`
	InProgress     bool       `json:"in_progress"`
	LastBackupTime *time.Time `json:"last_backup_time"`
	// NextBackupTime is omitted when the scheduler is disabled.
	NextBackupTime *time.Time `json:"next_backup_time,omitempty"`
}

// BackupSettings is read by GET and written by PUT /api/v1/backup/settings.
type BackupSettings struct {
	FileBackupFolder string `json:"file_backup_folder"`
	DBBackupFolder   string `json:"db_backup_folder"`
	BackupInterval   int    `json:"backup_interval"`
}

// IntervalRequest is the body of POST /api/v1/backup/settings/interval.
// The interval is kept as raw JSON so "abc", "0" and 0 all reach the
// interval validator instead of failing to decode.
type IntervalRequest struct {
	BackupInterval json.RawMessage `json:"backup_interval"`
}

// Raw returns the interval as text: a JSON string is unquoted, anything
// else (a number, null) is returned verbatim.
func (r IntervalRequest) Raw() string {
	var s string
	if err := json.Unmarshal(r.BackupInterval, &s); err == nil {
		return s
	}
	return string(r.BackupInterval)
}

// HealthStatus is the payload of GET /api/v1/health.
type HealthStatus struct {
	Status         string  `json:"status"` // healthy or degraded
	Version        string  `json:"version"`
	StoreReachable bool    `json:"store_reachable"`
	BackupStatus   string  `json:"backup_status,omitempty"`
	Uptime         float64 `json:"uptime_seconds"`
}
