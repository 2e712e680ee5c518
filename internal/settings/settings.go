// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package settings reads and writes the operator controlled backup
// configuration in the Config Store. Values are read on every call and
// never cached, so a change takes effect on the next run.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/store"
	"github.com/tomtom215/nextbackup/internal/validation"
)

// AppNamespace is the Config Store namespace of every key below.
const AppNamespace = "nextbackup"

// Config Store keys.
const (
	KeyFileBackupFolder = "file_backup_folder"
	KeyDBBackupFolder   = "db_backup_folder"
	KeyBackupInterval   = "backup_interval"
	KeyBackupStatus     = "backup_status"
	KeyBackupHistory    = "backup_history"
	KeyLastBackupTime   = "last_backup_time"
)

// Built-in defaults used when nothing is stored.
const (
	DefaultFileBackupPath     = "/backup/nextcloud"
	DefaultDatabaseBackupPath = "/backup/nextcloud-db"
	DefaultIntervalHours      = 24
	MaxIntervalHours          = 8760
)

// ErrInvalidInterval is returned for intervals that are not a positive
// whole number of hours.
var ErrInvalidInterval = errors.New("backup interval must be a positive whole number of hours")

// BackupConfiguration is the operator controlled part of a backup.
type BackupConfiguration struct {
	FileBackupPath     string `json:"file_backup_folder" validate:"required,abspath"`
	DatabaseBackupPath string `json:"db_backup_folder" validate:"required,abspath"`
	IntervalHours      int    `json:"backup_interval" validate:"gt=0,lte=8760"`
}

// Defaults returns the built-in configuration.
func Defaults() BackupConfiguration {
	return BackupConfiguration{
		FileBackupPath:     DefaultFileBackupPath,
		DatabaseBackupPath: DefaultDatabaseBackupPath,
		IntervalHours:      DefaultIntervalHours,
	}
}

// Settings is the typed view over the Config Store.
type Settings struct {
	store    store.Store
	defaults BackupConfiguration
}

// New returns Settings backed by s. Zero fields of defaults take the
// built-in values.
func New(s store.Store, defaults BackupConfiguration) *Settings {
	builtin := Defaults()
	if defaults.FileBackupPath == "" {
		defaults.FileBackupPath = builtin.FileBackupPath
	}
	if defaults.DatabaseBackupPath == "" {
		defaults.DatabaseBackupPath = builtin.DatabaseBackupPath
	}
	if defaults.IntervalHours <= 0 {
		defaults.IntervalHours = builtin.IntervalHours
	}
	return &Settings{store: s, defaults: defaults}
}

// Store returns the underlying Config Store.
func (s *Settings) Store() store.Store {
	return s.store
}

// Load returns the current configuration. A stored interval that does not
// parse is logged and replaced by the default; callers that must reject it
// use StoredInterval.
func (s *Settings) Load(ctx context.Context) (BackupConfiguration, error) {
	files, err := s.store.GetValue(ctx, AppNamespace, KeyFileBackupFolder, s.defaults.FileBackupPath)
	if err != nil {
		return BackupConfiguration{}, fmt.Errorf("load %s: %w", KeyFileBackupFolder, err)
	}
	db, err := s.store.GetValue(ctx, AppNamespace, KeyDBBackupFolder, s.defaults.DatabaseBackupPath)
	if err != nil {
		return BackupConfiguration{}, fmt.Errorf("load %s: %w", KeyDBBackupFolder, err)
	}
	hours, err := s.IntervalHours(ctx)
	if err != nil {
		return BackupConfiguration{}, err
	}
	return BackupConfiguration{
		FileBackupPath:     strings.TrimSpace(files),
		DatabaseBackupPath: strings.TrimSpace(db),
		IntervalHours:      hours,
	}, nil
}

// IntervalHours returns the stored interval, or the default when the
// stored value is missing or invalid. The scheduler reads it here.
func (s *Settings) IntervalHours(ctx context.Context) (int, error) {
	hours, err := s.StoredInterval(ctx)
	if errors.Is(err, ErrInvalidInterval) {
		logging.Warn().Err(err).Int("default", s.defaults.IntervalHours).
			Msg("Stored backup interval is invalid, using default")
		return s.defaults.IntervalHours, nil
	}
	return hours, err
}

// StoredInterval returns the stored interval, or the default when none is
// stored. An invalid stored value yields an error wrapping ErrInvalidInterval.
func (s *Settings) StoredInterval(ctx context.Context) (int, error) {
	raw, err := s.store.GetValue(ctx, AppNamespace, KeyBackupInterval, strconv.Itoa(s.defaults.IntervalHours))
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", KeyBackupInterval, err)
	}
	return ParseInterval(raw)
}

// Save validates cfg and stores all three values.
func (s *Settings) Save(ctx context.Context, cfg BackupConfiguration) error {
	cfg.FileBackupPath = strings.TrimSpace(cfg.FileBackupPath)
	cfg.DatabaseBackupPath = strings.TrimSpace(cfg.DatabaseBackupPath)
	if verr := validation.ValidateStruct(&cfg); verr != nil {
		return verr
	}

	values := []struct{ key, value string }{
		{KeyFileBackupFolder, cfg.FileBackupPath},
		{KeyDBBackupFolder, cfg.DatabaseBackupPath},
		{KeyBackupInterval, strconv.Itoa(cfg.IntervalHours)},
	}
	for _, v := range values {
		if err := s.store.SetValue(ctx, AppNamespace, v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	logging.Info().
		Str("file_backup_folder", cfg.FileBackupPath).
		Str("db_backup_folder", cfg.DatabaseBackupPath).
		Int("backup_interval", cfg.IntervalHours).
		Msg("Backup settings saved")
	return nil
}

// SaveInterval parses raw and stores it as the interval in hours.
func (s *Settings) SaveInterval(ctx context.Context, raw string) (int, error) {
	hours, err := ParseInterval(raw)
	if err != nil {
		return 0, err
	}
	if err := s.store.SetValue(ctx, AppNamespace, KeyBackupInterval, strconv.Itoa(hours)); err != nil {
		return 0, fmt.Errorf("save %s: %w", KeyBackupInterval, err)
	}
	logging.Info().Int("backup_interval", hours).Msg("Backup interval saved")
	return hours, nil
}

// ParseInterval accepts a whole number of hours in [1, 8760].
func ParseInterval(raw string) (int, error) {
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, raw)
	}
	if hours <= 0 || hours > MaxIntervalHours {
		return 0, fmt.Errorf("%w: %d", ErrInvalidInterval, hours)
	}
	return hours, nil
}
