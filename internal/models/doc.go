// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package models defines the JSON shapes exchanged over the HTTP API.

Every endpoint answers with APIResponse:

	{
	  "status": "success",
	  "data": {"status": "idle", "in_progress": false, "last_backup_time": null},
	  "metadata": {"timestamp": "2026-03-14T09:26:53Z", "request_id": "..."}
	}

Errors carry a machine-readable code and, for failed backups, the phase
that failed:

	{
	  "status": "error",
	  "data": null,
	  "metadata": {"timestamp": "2026-03-14T09:26:53Z"},
	  "error": {"code": "BACKUP_FAILED", "message": "...", "details": {"phase": "database"}}
	}
*/
package models
