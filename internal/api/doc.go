// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package api exposes the backup engine over HTTP using the chi router.

Routes:

	POST /api/v1/backup/now                 run a backup (rate limited)
	GET  /api/v1/backup/status              status, in_progress, last_backup_time
	GET  /api/v1/backup/history?limit=N     recent runs, newest first
	GET  /api/v1/backup/settings            folders and interval
	PUT  /api/v1/backup/settings            save folders and interval
	POST /api/v1/backup/settings/interval   save interval only
	GET  /api/v1/health                     liveness plus store reachability
	GET  /api/v1/health/live
	GET  /api/v1/health/ready
	GET  /metrics                           Prometheus

Every JSON answer uses the models.APIResponse envelope. Backup failures
map to BACKUP_FAILED (or UNSUPPORTED_ENGINE) with the failing phase in
error.details.phase.

A manual backup runs in the request goroutine and detaches from the
request context, so a client that disconnects does not abort the run.
*/
package api
