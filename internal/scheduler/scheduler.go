// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package scheduler triggers backups periodically.

Timer Logic:
  - the interval (hours) is read from the settings on every wake-up, so a
    changed interval applies without a restart
  - the next run is due one interval after the later of the last
    successful backup and the last attempt made by this process
  - a backup is due immediately when none was ever recorded
  - the timer never sleeps longer than Config.Recheck, so interval changes
    are noticed while waiting

A failed or panicking run is logged and waits for the next period; nothing
escapes the loop. The scheduler is run under suture through
services.SchedulerService.
*/
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/nextbackup/internal/backup"
	"github.com/tomtom215/nextbackup/internal/logging"
)

// BackupRunner is satisfied by *backup.Manager.
type BackupRunner interface {
	PerformBackup(ctx context.Context, trigger backup.Trigger) (*backup.Result, error)
	LastBackupTime(ctx context.Context) (time.Time, error)
}

// IntervalSource is satisfied by *settings.Settings.
type IntervalSource interface {
	IntervalHours(ctx context.Context) (int, error)
}

// Config tunes the scheduler.
type Config struct {
	// Recheck caps a single sleep. Default: 1m
	Recheck time.Duration
	// InitialDelay postpones the first check after Start. Default: 0
	InitialDelay time.Duration
}

// Scheduler runs backups on the configured interval.
type Scheduler struct {
	runner    BackupRunner
	intervals IntervalSource
	cfg       Config

	mu          sync.Mutex
	running     bool
	stop        chan struct{}
	wg          sync.WaitGroup
	lastAttempt time.Time

	now func() time.Time
}

// New returns a stopped Scheduler.
func New(runner BackupRunner, intervals IntervalSource, cfg Config) *Scheduler {
	if cfg.Recheck <= 0 {
		cfg.Recheck = time.Minute
	}
	return &Scheduler{
		runner:    runner,
		intervals: intervals,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start launches the scheduling loop. It returns an error when already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("backup scheduler is already running")
	}
	s.running = true
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.loop(ctx, s.stop)

	logging.Info().Msg("Backup scheduler started")
	return nil
}

// Stop ends the loop and waits for it. A backup in progress is not
// interrupted; Stop returns once it has finished.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	close(s.stop)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("Backup scheduler stopped")
	return nil
}

// NextRun returns when the next backup is due.
func (s *Scheduler) NextRun(ctx context.Context) (time.Time, error) {
	hours, err := s.intervals.IntervalHours(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("read backup interval: %w", err)
	}
	last, err := s.runner.LastBackupTime(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("read last backup time: %w", err)
	}

	s.mu.Lock()
	if s.lastAttempt.After(last) {
		last = s.lastAttempt
	}
	s.mu.Unlock()

	if last.IsZero() {
		return s.now(), nil
	}
	return last.Add(time.Duration(hours) * time.Hour), nil
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()

	timer := time.NewTimer(s.cfg.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-timer.C:
			timer.Reset(s.tick(ctx))
		}
	}
}

// tick runs a backup when one is due and returns how long to sleep.
func (s *Scheduler) tick(ctx context.Context) time.Duration {
	next, err := s.NextRun(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Could not compute next backup time")
		return s.cfg.Recheck
	}

	if wait := next.Sub(s.now()); wait > 0 {
		if wait > s.cfg.Recheck {
			return s.cfg.Recheck
		}
		return wait
	}

	s.runOnce(ctx)

	next, err = s.NextRun(ctx)
	if err != nil {
		return s.cfg.Recheck
	}
	logging.Info().Time("next_run", next).Msg("Next scheduled backup")
	if wait := next.Sub(s.now()); wait > 0 && wait < s.cfg.Recheck {
		return wait
	}
	return s.cfg.Recheck
}

// runOnce performs one scheduled backup, containing errors and panics.
func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	s.lastAttempt = s.now()
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("Scheduled backup panicked")
		}
	}()

	res, err := s.runner.PerformBackup(ctx, backup.TriggerScheduled)
	if err != nil {
		logging.Error().Err(err).Msg("Scheduled backup failed")
		return
	}
	logging.Info().Str("run_id", res.RunID).Dur("duration", res.Duration).Msg("Scheduled backup completed")
}
