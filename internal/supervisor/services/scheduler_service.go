// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package services

import (
	"context"
	"fmt"
)

// SchedulerManager is the Start/Stop lifecycle of *scheduler.Scheduler.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps the backup scheduler as a supervised service:
// Start on entry, block until ctx is canceled, then Stop.
//
//	sched := scheduler.New(manager, settings, scheduler.Config{})
//	tree.AddBackupService(services.NewSchedulerService(sched))
type SchedulerService struct {
	manager SchedulerManager
	name    string
}

// NewSchedulerService wraps manager.
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{
		manager: manager,
		name:    "backup-scheduler",
	}
}

// Serve implements suture.Service. A Start failure is returned immediately
// so suture applies its backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("backup scheduler start failed: %w", err)
	}

	<-ctx.Done()

	// Stop waits for an in-flight tick, which may include a whole backup run.
	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("backup scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *SchedulerService) String() string {
	return s.name
}
