// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/nextbackup/internal/config"
	"github.com/tomtom215/nextbackup/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(loggingConfig(cfg))
	logging.Info().
		Str("version", version).
		Str("store", cfg.Store.Type).
		Str("dbtype", cfg.SystemValue("dbtype", "")).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Msg("Starting Nextbackup")

	app, err := buildApp(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize backup engine")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close config store")
		}
	}()

	if path := config.ConfigFile(); path != "" {
		watchLogging(path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first signal stops the tree; a second one stops waiting for a
	// backup in progress.
	force := make(chan struct{})
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		sig = <-sigCh
		logging.Warn().Str("signal", sig.String()).Msg("Received second signal, not waiting for backup")
		close(force)
	}()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting supervisor tree")
	if err := serve(ctx, app, force); err != nil {
		logging.Error().Err(err).Msg("Shutdown incomplete")
	}

	logging.Info().Msg("Nextbackup stopped")
}

func loggingConfig(cfg *config.Config) logging.Config {
	return logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	}
}

// watchLogging re-applies the logging section when the config file
// changes. Everything else needs a restart.
func watchLogging(path string) {
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.LoadFile(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config file change")
			return
		}
		logging.Init(loggingConfig(cfg))
		logging.Info().Str("level", cfg.Logging.Level).Msg("Logging configuration reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
