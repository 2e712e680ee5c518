// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for backup runs, their phases, the database
// exporter, the file synchronizer and the HTTP API. Served on /metrics.

var (
	// Backup runs
	BackupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbackup_runs_total",
			Help: "Total number of backup runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // trigger: manual|scheduled, outcome: success|error
	)

	BackupRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nextbackup_run_duration_seconds",
			Help:    "Duration of complete backup runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200, 14400},
		},
	)

	BackupPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nextbackup_phase_duration_seconds",
			Help:    "Duration of backup phases in seconds",
			Buckets: []float64{0.1, 1, 5, 15, 60, 300, 900, 3600, 14400},
		},
		[]string{"phase", "outcome"},
	)

	BackupInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nextbackup_in_progress",
			Help: "1 while a backup run is executing",
		},
	)

	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nextbackup_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful backup run",
		},
	)

	// Maintenance mode
	MaintenanceModeActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nextbackup_maintenance_mode_active",
			Help: "1 while the protected application is held in maintenance mode",
		},
	)

	MaintenanceToggleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbackup_maintenance_toggle_failures_total",
			Help: "Total number of failed maintenance mode toggles",
		},
		[]string{"action"}, // enable|disable
	)

	// Database export
	DBExportTables = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbackup_dbexport_tables_total",
			Help: "Total number of tables exported",
		},
		[]string{"engine"},
	)

	DBExportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbackup_dbexport_rows_total",
			Help: "Total number of rows exported as INSERT statements",
		},
		[]string{"engine"},
	)

	DBExportBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nextbackup_dbexport_last_size_bytes",
			Help: "Size of the most recent database dump file",
		},
	)

	// File sync
	FileSyncExitCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbackup_filesync_exit_codes_total",
			Help: "Exit codes returned by the sync tool per source directory",
		},
		[]string{"source", "code"},
	)

	// Notifications
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbackup_notifications_total",
			Help: "Operator notifications by event and result",
		},
		[]string{"event", "result"}, // result: sent|failed|dropped
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nextbackup_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nextbackup_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nextbackup_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)
)

// RecordRun records the outcome of one backup run.
func RecordRun(trigger string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else {
		BackupLastSuccess.Set(float64(time.Now().Unix()))
	}
	BackupRunsTotal.WithLabelValues(trigger, outcome).Inc()
	BackupRunDuration.Observe(duration.Seconds())
}

// RecordPhase records the duration and outcome of one phase.
func RecordPhase(phase string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	BackupPhaseDuration.WithLabelValues(phase, outcome).Observe(duration.Seconds())
}

// RecordSyncExit records a sync tool exit code for a source directory.
func RecordSyncExit(source string, code int) {
	FileSyncExitCodes.WithLabelValues(source, strconv.Itoa(code)).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
