// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package backup

import "time"

// Status is the externally visible progress of the current or last run.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRunning      Status = "running"
	StatusRunningFiles Status = "running_files"
	StatusRunningDB    Status = "running_db"
	StatusSuccess      Status = "success"
	StatusSuccessFiles Status = "success_files"
	StatusSuccessDB    Status = "success_db"
	StatusError        Status = "error"
	StatusErrorFiles   Status = "error_files"
	StatusErrorDB      Status = "error_db"
)

// IsRunning reports whether s is one of the running states.
func (s Status) IsRunning() bool {
	return s == StatusRunning || s == StatusRunningFiles || s == StatusRunningDB
}

// Trigger records who started a run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Phase names a step of a run.
type Phase string

const (
	PhaseValidate    Phase = "validate"
	PhaseMaintenance Phase = "maintenance"
	PhaseDatabase    Phase = "database"
	PhaseFiles       Phase = "files"
)

// Result describes a successful run.
type Result struct {
	RunID        string        `json:"run_id"`
	Trigger      Trigger       `json:"trigger"`
	FilesPath    string        `json:"files_path"`
	DatabaseFile string        `json:"database_file"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  time.Time     `json:"completed_at"`
	Duration     time.Duration `json:"duration_ns"`
	// Pruned lists dump files removed by the retention policy.
	Pruned []string `json:"pruned,omitempty"`
}

// Run is one entry of the run history, successful or not.
type Run struct {
	RunID        string    `json:"run_id"`
	Trigger      Trigger   `json:"trigger"`
	Status       Status    `json:"status"`
	Phase        Phase     `json:"phase,omitempty"`
	Message      string    `json:"message,omitempty"`
	FilesPath    string    `json:"files_path,omitempty"`
	DatabaseFile string    `json:"database_file,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMs   int64     `json:"duration_ms"`
}
