// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package backup orchestrates one complete backup of the protected application.

A run validates the operator configuration, puts the application into
maintenance mode, exports the database, mirrors the data and configuration
directories, and takes the application out of maintenance mode again on
every exit path:

	mgr, err := backup.NewManager(backup.Deps{
	    Settings:    settings.New(st, settings.Defaults()),
	    Maintenance: maintenance.NewController(mcfg, runner),
	    Database:    dbexport.New(dcfg, dbexport.DefaultRegistry(), sys),
	    Files:       filesync.New(fcfg, runner),
	}, backup.Config{})

	result, err := mgr.PerformBackup(ctx, backup.TriggerManual)
	var be *backup.Error
	if errors.As(err, &be) {
	    // be.Phase tells where the run stopped
	}

# Status

Progress is published as a single overwritten Config Store value
(backup_status) that moves through running, running_db, success_db,
running_files, success_files and finally success or error. A process that
dies mid-run leaves the last running value until the next run.

# Concurrency

PerformBackup is guarded by a single-flight group: a trigger that arrives
while a run is in flight waits for that run and receives its outcome
instead of starting a second one. Runs are detached from the caller's
context so a disconnected HTTP client never aborts a backup half way.
*/
package backup
