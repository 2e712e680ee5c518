// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package config

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/tomtom215/nextbackup/internal/process"
	"github.com/tomtom215/nextbackup/internal/validation"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validNotificationKinds = map[string]bool{
	"backup_failed":     true,
	"backup_succeeded":  true,
	"maintenance_stuck": true,
}

// Validate checks the loaded configuration section by section and returns
// the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateStore,
		c.validateBackup,
		c.validateMaintenance,
		c.validateSync,
		c.validateDatabase,
		c.validateNotifications,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.Server.BackupNowLimit < 0 {
		return fmt.Errorf("server.backup_now_limit must not be negative")
	}
	if c.Server.BackupNowLimit > 0 && c.Server.BackupNowWindow <= 0 {
		return fmt.Errorf("server.backup_now_window must be positive when a limit is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Type {
	case "memory":
		return nil
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required when store.type=badger")
		}
		if c.Store.GCDiscardRatio <= 0 || c.Store.GCDiscardRatio >= 1 {
			return fmt.Errorf("store.gc_discard_ratio must be between 0 and 1")
		}
		return nil
	default:
		return fmt.Errorf("store.type must be one of: badger, memory")
	}
}

func (c *Config) validateBackup() error {
	if err := validation.ValidateStruct(&c.Backup); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if err := validation.ValidateStruct(&c.Backup.Retention); err != nil {
		return fmt.Errorf("backup.retention: %w", err)
	}
	r := c.Backup.Retention
	if r.MaxCount > 0 && r.MinCount > r.MaxCount {
		return fmt.Errorf("backup.retention.min_count (%d) exceeds max_count (%d)", r.MinCount, r.MaxCount)
	}
	return nil
}

func (c *Config) validateMaintenance() error {
	if _, err := process.ParseCommandLine(c.Maintenance.Command); err != nil {
		return fmt.Errorf("maintenance.command: %w", err)
	}
	if c.Maintenance.Timeout <= 0 {
		return fmt.Errorf("maintenance.timeout must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if _, err := process.ParseCommandLine(c.Sync.Command); err != nil {
		return fmt.Errorf("sync.command: %w", err)
	}
	if c.Sync.Timeout <= 0 {
		return fmt.Errorf("sync.timeout must be positive")
	}
	if c.Sync.ConfigDir != "" && !filepath.IsAbs(c.Sync.ConfigDir) {
		return fmt.Errorf("sync.config_dir must be an absolute path")
	}
	if !filepath.IsAbs(c.SystemValue("datadirectory", "")) {
		return fmt.Errorf("system.datadirectory must be an absolute path")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if err := validation.ValidateStruct(&c.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database.timeout must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	w := c.Notifications.Webhook
	if !w.Enabled {
		return nil
	}
	if err := validateWebhookURL(w.URL); err != nil {
		return fmt.Errorf("notifications.webhook.url is invalid: %w", err)
	}
	for _, k := range w.Kinds {
		if !validNotificationKinds[k] {
			return fmt.Errorf("notifications.webhook.kinds: unknown kind %q", k)
		}
	}
	if w.RatePerMinute < 0 || w.Burst < 0 {
		return fmt.Errorf("notifications.webhook rate and burst must not be negative")
	}
	return nil
}

// validateWebhookURL accepts absolute http(s) URLs. Unlike a base URL, a
// webhook may carry a path and a query (tokens are commonly passed there).
func validateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required when the webhook is enabled")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
