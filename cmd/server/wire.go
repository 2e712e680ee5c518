// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/nextbackup/internal/api"
	"github.com/tomtom215/nextbackup/internal/backup"
	"github.com/tomtom215/nextbackup/internal/config"
	"github.com/tomtom215/nextbackup/internal/dbexport"
	"github.com/tomtom215/nextbackup/internal/filesync"
	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/maintenance"
	"github.com/tomtom215/nextbackup/internal/notify"
	"github.com/tomtom215/nextbackup/internal/process"
	"github.com/tomtom215/nextbackup/internal/scheduler"
	"github.com/tomtom215/nextbackup/internal/settings"
	"github.com/tomtom215/nextbackup/internal/store"
	"github.com/tomtom215/nextbackup/internal/supervisor"
	"github.com/tomtom215/nextbackup/internal/supervisor/services"
)

// app is the wired process: the backup engine plus the tree that runs it.
type app struct {
	manager   *backup.Manager
	settings  *settings.Settings
	scheduler *scheduler.Scheduler // nil when disabled
	handler   http.Handler
	server    *http.Server
	tree      *supervisor.SupervisorTree

	closeStore func() error
}

// Close releases the config store. Call after the tree has stopped.
func (a *app) Close() error {
	return a.closeStore()
}

func buildApp(cfg *config.Config) (*app, error) {
	st, closeStore, err := store.Open(store.Type(cfg.Store.Type), cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}
	a := &app{closeStore: closeStore}
	if err := a.wire(cfg, st); err != nil {
		_ = closeStore() //nolint:errcheck // already failing
		return nil, err
	}
	return a, nil
}

func (a *app) wire(cfg *config.Config, st store.Store) error {
	a.settings = settings.New(st, settings.BackupConfiguration{
		FileBackupPath:     cfg.Backup.FileBackupFolder,
		DatabaseBackupPath: cfg.Backup.DBBackupFolder,
		IntervalHours:      cfg.Backup.IntervalHours,
	})

	runner := process.NewExecRunner(0)

	maint, err := newMaintenance(cfg, runner)
	if err != nil {
		return err
	}
	files, err := newFileSync(cfg, runner)
	if err != nil {
		return err
	}
	exporter := dbexport.New(dbexport.Config{
		Prefix:          cfg.Database.Prefix,
		Timeout:         cfg.Database.Timeout,
		BreakerFailures: cfg.Database.BreakerFailures,
		BreakerCooldown: cfg.Database.BreakerCooldown,
	}, dbexport.DefaultRegistry(), store.NewMapSystem(cfg.System))

	a.manager, err = backup.NewManager(backup.Deps{
		Settings:    a.settings,
		Maintenance: maint,
		Database:    exporter,
		Files:       files,
		Notifier:    newNotifier(cfg),
	}, backup.Config{
		DumpPrefix: cfg.Database.Prefix,
		Retention: backup.RetentionPolicy{
			MaxCount:   cfg.Backup.Retention.MaxCount,
			MaxAgeDays: cfg.Backup.Retention.MaxAgeDays,
			MinCount:   cfg.Backup.Retention.MinCount,
		},
		HistoryLimit: cfg.Backup.HistoryLimit,
	})
	if err != nil {
		return fmt.Errorf("create backup manager: %w", err)
	}

	var nextRun api.NextRunSource
	if cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(a.manager, a.settings, scheduler.Config{
			Recheck:      cfg.Scheduler.Recheck,
			InitialDelay: cfg.Scheduler.InitialDelay,
		})
		nextRun = a.scheduler
	}

	h := api.NewHandler(api.HandlerConfig{
		Backups:   a.manager,
		Settings:  a.settings,
		Scheduler: nextRun,
		Version:   version,
	})
	a.handler = api.NewRouter(h, api.RouterConfig{
		BackupNowLimit:  cfg.Server.BackupNowLimit,
		BackupNowWindow: cfg.Server.BackupNowWindow,
	})
	a.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		// A manual backup answers only when the run is over.
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return a.buildTree(cfg, st)
}

func (a *app) buildTree(cfg *config.Config, st store.Store) error {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if gc, ok := st.(*store.BadgerStore); ok {
		tree.AddStoreService(services.NewStoreGCService(gc, cfg.Store.GCInterval, cfg.Store.GCDiscardRatio))
		logging.Info().Dur("interval", cfg.Store.GCInterval).Msg("Store GC service added")
	}
	if a.scheduler != nil {
		tree.AddBackupService(services.NewSchedulerService(a.scheduler))
		logging.Info().Msg("Backup scheduler service added")
	}
	tree.AddAPIService(services.NewHTTPServerService(a.server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", a.server.Addr).Msg("HTTP server service added")

	a.tree = tree
	return nil
}

func newMaintenance(cfg *config.Config, runner process.Runner) (*maintenance.Controller, error) {
	cmd, err := process.ParseCommandLine(cfg.Maintenance.Command)
	if err != nil {
		return nil, fmt.Errorf("maintenance.command: %w", err)
	}
	return maintenance.NewController(maintenance.Config{
		Command:     cmd,
		EnableArgs:  cfg.Maintenance.EnableArgs,
		DisableArgs: cfg.Maintenance.DisableArgs,
		Timeout:     cfg.Maintenance.Timeout,
	}, runner), nil
}

// newFileSync mirrors the data directory and the config directory, in
// that order, into <file_backup_folder>/data and /config.
func newFileSync(cfg *config.Config, runner process.Runner) (*filesync.Synchronizer, error) {
	cmd, err := process.ParseCommandLine(cfg.Sync.Command)
	if err != nil {
		return nil, fmt.Errorf("sync.command: %w", err)
	}

	var policy *filesync.Policy
	if len(cfg.Sync.Excludes) > 0 {
		policy = filesync.NewPolicy(cfg.Sync.Excludes...)
	}

	return filesync.New(filesync.Config{
		Rsync: cmd,
		Sources: []filesync.Source{
			{Name: "data", Path: cfg.SystemValue("datadirectory", "")},
			{Name: "config", Path: cfg.Sync.ConfigDir},
		},
		Timeout: cfg.Sync.Timeout,
		TempDir: cfg.Sync.TempDir,
		Policy:  policy,
	}, runner), nil
}

func newNotifier(cfg *config.Config) notify.Notifier {
	wh := cfg.Notifications.Webhook
	if !wh.Enabled || wh.URL == "" {
		return notify.LogNotifier{}
	}

	kinds := make([]notify.Kind, 0, len(wh.Kinds))
	for _, k := range wh.Kinds {
		kinds = append(kinds, notify.Kind(k))
	}
	logging.Info().Strs("kinds", wh.Kinds).Msg("Webhook notifications enabled")

	return notify.Multi{
		notify.LogNotifier{},
		notify.NewWebhook(notify.WebhookConfig{
			URL:              wh.URL,
			Headers:          wh.Headers,
			Timeout:          wh.Timeout,
			Kinds:            kinds,
			Rate:             wh.RatePerMinute / 60,
			Burst:            wh.Burst,
			FailureThreshold: wh.FailureThreshold,
			Cooldown:         wh.Cooldown,
		}),
	}
}
