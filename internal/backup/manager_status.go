// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package backup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/settings"
)

// setStatus publishes s. A store failure is logged and does not fail the run.
func (m *Manager) setStatus(ctx context.Context, s Status) {
	if err := m.settings.Store().SetValue(ctx, settings.AppNamespace, settings.KeyBackupStatus, string(s)); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("status", string(s)).Msg("Failed to store backup status")
		return
	}
	logging.Ctx(ctx).Debug().Str("status", string(s)).Msg("Backup status changed")
}

// Status returns the published status, idle when nothing was stored yet.
// A running status with no run in flight is returned unchanged and logged:
// it was left by a process that stopped mid-run.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	v, err := m.settings.Store().GetValue(ctx, settings.AppNamespace, settings.KeyBackupStatus, string(StatusIdle))
	if err != nil {
		return StatusIdle, fmt.Errorf("load backup status: %w", err)
	}
	s := Status(v)
	if s.IsRunning() && !m.InProgress() {
		logging.Ctx(ctx).Warn().Str("status", v).Msg("Stored backup status is from an interrupted run")
	}
	return s, nil
}

func (m *Manager) setLastBackupTime(ctx context.Context, t time.Time) {
	v := strconv.FormatInt(t.Unix(), 10)
	if err := m.settings.Store().SetValue(ctx, settings.AppNamespace, settings.KeyLastBackupTime, v); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to store last backup time")
	}
}

// LastBackupTime returns the completion time of the last successful run,
// or the zero time when there was none.
func (m *Manager) LastBackupTime(ctx context.Context) (time.Time, error) {
	v, err := m.settings.Store().GetValue(ctx, settings.AppNamespace, settings.KeyLastBackupTime, "")
	if err != nil {
		return time.Time{}, fmt.Errorf("load last backup time: %w", err)
	}
	if v == "" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs <= 0 {
		logging.Warn().Str("value", v).Msg("Ignoring invalid last backup time")
		return time.Time{}, nil
	}
	return time.Unix(secs, 0), nil
}

// recordRun prepends entry to the stored history, newest first.
func (m *Manager) recordRun(ctx context.Context, entry Run) {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	runs, err := m.loadHistory(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Discarding unreadable backup history")
		runs = nil
	}
	runs = append([]Run{entry}, runs...)
	if len(runs) > m.cfg.HistoryLimit {
		runs = runs[:m.cfg.HistoryLimit]
	}

	data, err := json.Marshal(runs)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to encode backup history")
		return
	}
	if err := m.settings.Store().SetValue(ctx, settings.AppNamespace, settings.KeyBackupHistory, string(data)); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to store backup history")
	}
}

func (m *Manager) loadHistory(ctx context.Context) ([]Run, error) {
	raw, err := m.settings.Store().GetValue(ctx, settings.AppNamespace, settings.KeyBackupHistory, "")
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var runs []Run
	if err := json.Unmarshal([]byte(raw), &runs); err != nil {
		return nil, fmt.Errorf("decode backup history: %w", err)
	}
	return runs, nil
}

// History returns up to limit runs, newest first. limit <= 0 returns all.
func (m *Manager) History(ctx context.Context, limit int) ([]Run, error) {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	runs, err := m.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}
