// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package services adapts Nextbackup components to suture.Service.

# Available Services

HTTPServerService wraps *http.Server: ListenAndServe runs in a goroutine
and context cancellation triggers Shutdown with a bounded timeout.

SchedulerService wraps *scheduler.Scheduler: Start on entry, Stop once the
context is canceled.

StoreGCService periodically reclaims Badger value-log space.

Every wrapper implements fmt.Stringer so suture can name it in events.
*/
package services
