// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nextbackup/config.yaml",
	"/etc/nextbackup/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix marks generic overrides: NEXTBACKUP_<SECTION>__<KEY>, with a
// double underscore for each nesting level.
//
//	NEXTBACKUP_SERVER__PORT=9000              -> server.port
//	NEXTBACKUP_BACKUP__RETENTION__MAX_COUNT=7 -> backup.retention.max_count
//	NEXTBACKUP_SYSTEM__DBTYPE=pgsql           -> system.dbtype
const EnvPrefix = "NEXTBACKUP_"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0, // manual backups hold the request open
			ShutdownTimeout: 10 * time.Second,
			BackupNowLimit:  6,
			BackupNowWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Type:           "badger",
			Path:           "/var/lib/nextbackup/store",
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Backup: BackupConfig{
			FileBackupFolder: "/backup/nextcloud",
			DBBackupFolder:   "/backup/nextcloud-db",
			IntervalHours:    24,
			HistoryLimit:     50,
		},
		Maintenance: MaintenanceConfig{
			Command:     "php /var/www/nextcloud/occ maintenance:mode",
			EnableArgs:  []string{"--on"},
			DisableArgs: []string{"--off"},
			Timeout:     2 * time.Minute,
		},
		Sync: SyncConfig{
			Command:   "rsync",
			ConfigDir: "/var/www/nextcloud/config",
			Timeout:   6 * time.Hour,
		},
		Database: DatabaseConfig{
			Prefix:          "nextcloud-db",
			Timeout:         2 * time.Hour,
			BreakerFailures: 3,
			BreakerCooldown: 5 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Recheck: time.Minute,
		},
		Notifications: NotificationsConfig{
			Webhook: WebhookConfig{
				Kinds:            []string{"backup_failed", "maintenance_stuck"},
				Timeout:          10 * time.Second,
				RatePerMinute:    1,
				Burst:            5,
				FailureThreshold: 5,
				Cooldown:         time.Minute,
			},
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// defaultSystem fills system values left unset. Applied after unmarshal so
// a partial system section in the file or environment keeps the rest.
var defaultSystem = map[string]string{
	"datadirectory": "/var/www/nextcloud/data",
	"dbtype":        "sqlite",
}

// Load reads configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit file path; "" skips the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := processMapFields(k); err != nil {
		return nil, fmt.Errorf("failed to process map fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.normalizeSystem()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFile returns the file Load reads, or "" when there is none.
func ConfigFile() string {
	return findConfigFile()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// normalizeSystem lower-cases system keys (YAML keeps the case it was
// written in) and applies defaultSystem.
func (c *Config) normalizeSystem() {
	sys := make(map[string]string, len(c.System)+len(defaultSystem))
	for k, v := range c.System {
		sys[strings.ToLower(k)] = v
	}
	for k, v := range defaultSystem {
		if sys[k] == "" {
			sys[k] = v
		}
	}
	c.System = sys
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"maintenance.enable_args",
	"maintenance.disable_args",
	"sync.excludes",
	"notifications.webhook.kinds",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := splitList(strVal)
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// mapConfigPaths arrive from the environment as "K=V,K2=V2".
var mapConfigPaths = []string{
	"notifications.webhook.headers",
}

func processMapFields(k *koanf.Koanf) error {
	for _, path := range mapConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		m := make(map[string]interface{})
		for _, item := range splitList(strVal) {
			// split on the first = only; values may contain =
			key, value, found := strings.Cut(item, "=")
			key = strings.TrimSpace(key)
			if !found || key == "" {
				continue
			}
			m[key] = strings.TrimSpace(value)
		}
		k.Delete(path)
		if len(m) == 0 {
			continue
		}
		if err := k.Set(path, m); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// legacyEnv maps the variable names used by existing container images.
var legacyEnv = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"http_host": "server.host",
	"http_port": "server.port",

	"store_type": "store.type",
	"store_path": "store.path",

	"file_backup_folder": "backup.file_backup_folder",
	"db_backup_folder":   "backup.db_backup_folder",
	"backup_interval":    "backup.interval_hours",

	"occ_command":      "maintenance.command",
	"rsync_command":    "sync.command",
	"nextcloud_config": "sync.config_dir",
	"nextcloud_data":   "system.datadirectory",

	"db_type":     "system.dbtype",
	"db_host":     "system.dbhost",
	"db_port":     "system.dbport",
	"db_name":     "system.dbname",
	"db_user":     "system.dbuser",
	"db_password": "system.dbpassword",

	"backup_webhook_url": "notifications.webhook.url",
}

// envTransformFunc maps an environment variable name to a koanf path, or
// "" to ignore it.
func envTransformFunc(key string) string {
	lower := strings.ToLower(key)
	if mapped, ok := legacyEnv[lower]; ok {
		return mapped
	}
	rest, ok := strings.CutPrefix(lower, strings.ToLower(EnvPrefix))
	if !ok || rest == "" {
		return ""
	}
	return strings.ReplaceAll(rest, "__", ".")
}

// WatchConfigFile calls callback whenever path changes. The caller reloads
// and swaps configuration under its own lock.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
