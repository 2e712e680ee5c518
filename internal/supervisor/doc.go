// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package supervisor runs the long-lived parts of Nextbackup under suture v4.

# Overview

	RootSupervisor ("nextbackup")
	├── StoreSupervisor ("store-layer")
	│   └── StoreGCService (store.type=badger only)
	├── BackupSupervisor ("backup-layer")
	│   └── SchedulerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's failure counter and backoff.
Each layer counts failures independently, so a scheduler that keeps
panicking on startup never takes the HTTP API down with it.

# Usage

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddBackupService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

# Service Interface

Every service implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning nil stops the service for good, returning an error restarts it,
and a canceled context means shutdown was requested.

# What Is NOT Supervised

A backup run itself. Runs are owned by backup.Manager and detached from
any caller context; the scheduler only triggers them. Stopping the tree
while a run is in flight leaves the run to finish on its own goroutine
until the process exits.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("Service did not stop")
	}
*/
package supervisor
