// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package services

import (
	"context"
	"time"

	"github.com/tomtom215/nextbackup/internal/logging"
)

// DefaultGCInterval is how often the store's value log is collected.
const DefaultGCInterval = 10 * time.Minute

// GarbageCollector is satisfied by *store.BadgerStore.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

// StoreGCService runs value-log GC on a fixed interval. GC errors are
// logged and the loop continues; they never restart the service.
type StoreGCService struct {
	gc           GarbageCollector
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewStoreGCService wraps gc. Non-positive values use the defaults
// (DefaultGCInterval, ratio 0.5).
func NewStoreGCService(gc GarbageCollector, interval time.Duration, discardRatio float64) *StoreGCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	return &StoreGCService{
		gc:           gc,
		interval:     interval,
		discardRatio: discardRatio,
		name:         "store-gc",
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(s.discardRatio); err != nil {
				logging.Warn().Err(err).Msg("Store value log GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Store value log GC completed")
		}
	}
}

// String implements fmt.Stringer.
func (s *StoreGCService) String() string {
	return s.name
}
