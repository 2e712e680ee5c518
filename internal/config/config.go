// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds the process configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables (NEXTBACKUP_SECTION__KEY and legacy names)
//
// User-editable backup settings (destination folders, interval) live in the
// config store once saved through the API; the Backup section here only
// seeds their defaults.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	Store         StoreConfig         `koanf:"store"`
	Backup        BackupConfig        `koanf:"backup"`
	Maintenance   MaintenanceConfig   `koanf:"maintenance"`
	Sync          SyncConfig          `koanf:"sync"`
	Database      DatabaseConfig      `koanf:"database"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Supervisor    SupervisorConfig    `koanf:"supervisor"`

	// System holds the protected application's system values, e.g.
	// datadirectory, dbtype, dbhost, dbport, dbname, dbuser, dbpassword.
	System map[string]string `koanf:"system"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// BackupNowLimit manual triggers are accepted per BackupNowWindow and
	// client IP. Zero disables the limit.
	BackupNowLimit  int           `koanf:"backup_now_limit"`
	BackupNowWindow time.Duration `koanf:"backup_now_window"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig selects the config store backend.
type StoreConfig struct {
	Type           string        `koanf:"type"` // badger or memory
	Path           string        `koanf:"path"`
	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio"`
}

// BackupConfig seeds the user settings and tunes the orchestrator.
type BackupConfig struct {
	FileBackupFolder string          `koanf:"file_backup_folder" validate:"required,abspath"`
	DBBackupFolder   string          `koanf:"db_backup_folder" validate:"required,abspath"`
	IntervalHours    int             `koanf:"interval_hours" validate:"gt=0,lte=8760"`
	HistoryLimit     int             `koanf:"history_limit" validate:"gte=1,lte=1000"`
	Retention        RetentionConfig `koanf:"retention"`
}

// RetentionConfig controls pruning of old database dumps. All zero keeps
// every dump.
type RetentionConfig struct {
	MaxCount   int `koanf:"max_count" validate:"gte=0"`
	MaxAgeDays int `koanf:"max_age_days" validate:"gte=0"`
	MinCount   int `koanf:"min_count" validate:"gte=0"`
}

// MaintenanceConfig describes the maintenance-mode toggle command.
type MaintenanceConfig struct {
	// Command is a shell-style line, e.g. "sudo -u www-data php /var/www/nextcloud/occ maintenance:mode".
	Command     string        `koanf:"command"`
	EnableArgs  []string      `koanf:"enable_args"`
	DisableArgs []string      `koanf:"disable_args"`
	Timeout     time.Duration `koanf:"timeout"`
}

// SyncConfig configures the file synchronizer. The data directory comes
// from system.datadirectory.
type SyncConfig struct {
	Command   string        `koanf:"command"`
	ConfigDir string        `koanf:"config_dir"`
	Excludes  []string      `koanf:"excludes"` // empty uses the built-in policy
	TempDir   string        `koanf:"temp_dir"`
	Timeout   time.Duration `koanf:"timeout"`
}

// DatabaseConfig configures the database exporter.
type DatabaseConfig struct {
	Prefix          string        `koanf:"prefix" validate:"fileprefix"`
	Timeout         time.Duration `koanf:"timeout"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// SchedulerConfig controls the periodic trigger.
type SchedulerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Recheck      time.Duration `koanf:"recheck"`
	InitialDelay time.Duration `koanf:"initial_delay"`
}

// NotificationsConfig configures operator alerts. Alerts are always
// logged; the webhook is optional.
type NotificationsConfig struct {
	Webhook WebhookConfig `koanf:"webhook"`
}

// WebhookConfig mirrors notify.WebhookConfig.
type WebhookConfig struct {
	Enabled          bool              `koanf:"enabled"`
	URL              string            `koanf:"url"`
	Headers          map[string]string `koanf:"headers"`
	Kinds            []string          `koanf:"kinds"`
	Timeout          time.Duration     `koanf:"timeout"`
	RatePerMinute    float64           `koanf:"rate_per_minute"`
	Burst            int               `koanf:"burst"`
	FailureThreshold uint32            `koanf:"failure_threshold"`
	Cooldown         time.Duration     `koanf:"cooldown"`
}

// SupervisorConfig mirrors supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SystemValue returns a system value, or def when unset.
func (c *Config) SystemValue(key, def string) string {
	if v, ok := c.System[strings.ToLower(key)]; ok && v != "" {
		return v
	}
	return def
}
