// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package notify delivers operator alerts about backup runs.
//
// The orchestrator always calls a Notifier when a run fails or when the
// protected application could not be taken out of maintenance mode. The
// default Notifier only logs; a webhook can be configured on top.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/metrics"
)

// Kind identifies an alert.
type Kind string

const (
	KindBackupFailed     Kind = "backup_failed"
	KindBackupSucceeded  Kind = "backup_succeeded"
	KindMaintenanceStuck Kind = "maintenance_stuck"
)

// Event is one alert.
type Event struct {
	Kind    Kind      `json:"event"`
	RunID   string    `json:"run_id"`
	Trigger string    `json:"trigger,omitempty"`
	Phase   string    `json:"phase,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier writes events to the log. Failures are logged at error level.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, ev Event) error {
	l := logging.Ctx(ctx)
	e := l.Info()
	if ev.Kind != KindBackupSucceeded {
		e = l.Error()
	}
	e.Str("event", string(ev.Kind)).
		Str("phase", ev.Phase).
		Str("trigger", ev.Trigger).
		Msg(ev.Message)
	metrics.NotificationsTotal.WithLabelValues(string(ev.Kind), "logged").Inc()
	return nil
}

// Multi fans an event out to several notifiers and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
