// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package backup

import (
	"context"
	"os"

	"github.com/tomtom215/nextbackup/internal/settings"
)

// validate checks everything that can be checked without touching the
// protected application. The engine is resolved first so an unsupported
// engine fails before any directory is created.
func (m *Manager) validate(ctx context.Context) (settings.BackupConfiguration, error) {
	if _, _, err := m.database.Resolve(); err != nil {
		return settings.BackupConfiguration{}, err
	}

	cfg, err := m.settings.Load(ctx)
	if err != nil {
		return cfg, &ConfigurationError{Reason: "could not be loaded", Err: err}
	}
	hours, err := m.settings.StoredInterval(ctx)
	if err != nil {
		return cfg, &ConfigurationError{Setting: settings.KeyBackupInterval, Reason: "is invalid", Err: err}
	}
	cfg.IntervalHours = hours

	destinations := []struct{ key, path string }{
		{settings.KeyDBBackupFolder, cfg.DatabaseBackupPath},
		{settings.KeyFileBackupFolder, cfg.FileBackupPath},
	}
	for _, d := range destinations {
		if d.path == "" {
			return cfg, &ConfigurationError{Setting: d.key, Reason: "is empty"}
		}
	}
	for _, d := range destinations {
		if err := ensureWritable(d.path); err != nil {
			return cfg, &ConfigurationError{Setting: d.key, Path: d.path, Reason: "is not writable", Err: err}
		}
	}
	return cfg, nil
}

// ensureWritable creates dir (0700) when missing and proves it accepts files.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".nextbackup-write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()       //nolint:errcheck,gosec // empty test file
	os.Remove(name) //nolint:errcheck,gosec // Best effort cleanup
	return nil
}
