// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package api

import (
	"context"
	"time"

	"github.com/tomtom215/nextbackup/internal/backup"
	"github.com/tomtom215/nextbackup/internal/settings"
)

// BackupService is the part of backup.Manager the handlers need.
type BackupService interface {
	PerformBackup(ctx context.Context, trigger backup.Trigger) (*backup.Result, error)
	InProgress() bool
	Status(ctx context.Context) (backup.Status, error)
	LastBackupTime(ctx context.Context) (time.Time, error)
	History(ctx context.Context, limit int) ([]backup.Run, error)
}

// NextRunSource reports when the scheduler fires next.
type NextRunSource interface {
	NextRun(ctx context.Context) (time.Time, error)
}

// HandlerConfig wires a Handler. Scheduler may be nil when scheduling is
// disabled.
type HandlerConfig struct {
	Backups   BackupService
	Settings  *settings.Settings
	Scheduler NextRunSource
	Version   string
}

// Handler serves the HTTP API.
type Handler struct {
	backups   BackupService
	settings  *settings.Settings
	scheduler NextRunSource
	version   string
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		backups:   cfg.Backups,
		settings:  cfg.Settings,
		scheduler: cfg.Scheduler,
		version:   version,
		startTime: time.Now(),
	}
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)
