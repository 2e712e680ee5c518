// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeScheduler struct {
	startErr error
	stopErr  error
	starts   atomic.Int32
	stops    atomic.Int32
}

func (f *fakeScheduler) Start(context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeScheduler) Stop() error {
	f.stops.Add(1)
	return f.stopErr
}

func TestSchedulerService_Serve(t *testing.T) {
	t.Run("starts then stops on cancel", func(t *testing.T) {
		fake := &fakeScheduler{}
		svc := NewSchedulerService(fake)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		if fake.starts.Load() != 1 {
			t.Fatalf("Start calls = %d, want 1", fake.starts.Load())
		}
		if fake.stops.Load() != 0 {
			t.Fatal("Stop called before cancellation")
		}

		cancel()
		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return")
		}
		if fake.stops.Load() != 1 {
			t.Errorf("Stop calls = %d, want 1", fake.stops.Load())
		}
	})

	t.Run("start failure is returned without stop", func(t *testing.T) {
		fake := &fakeScheduler{startErr: errors.New("already running")}
		err := NewSchedulerService(fake).Serve(context.Background())
		if !errors.Is(err, fake.startErr) {
			t.Errorf("Serve() = %v, want start error", err)
		}
		if fake.stops.Load() != 0 {
			t.Error("Stop should not be called after a failed start")
		}
	})

	t.Run("stop failure is returned", func(t *testing.T) {
		fake := &fakeScheduler{stopErr: errors.New("stuck")}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewSchedulerService(fake).Serve(ctx)
		if !errors.Is(err, fake.stopErr) {
			t.Errorf("Serve() = %v, want stop error", err)
		}
	})
}

func TestSchedulerService_String(t *testing.T) {
	if got := NewSchedulerService(&fakeScheduler{}).String(); got != "backup-scheduler" {
		t.Errorf("String() = %q, want backup-scheduler", got)
	}
}
