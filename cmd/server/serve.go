// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package main

import (
	"context"
	"errors"

	"github.com/tomtom215/nextbackup/internal/logging"
)

// serve runs the supervisor tree until ctx is canceled, then waits for a
// backup in flight to finish. Closing force abandons that wait. The config
// store stays open; the caller closes it after serve returns.
func serve(ctx context.Context, a *app, force <-chan struct{}) error {
	errCh := a.tree.ServeBackground(ctx)

	// ServeBackground sends exactly once and never closes errCh.
	err := <-errCh
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := a.tree.UnstoppedServiceReport() //nolint:errcheck // report is best effort
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if a.manager.InProgress() {
		logging.Info().Msg("Waiting for backup in progress to finish")
	}
	waitCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-force:
			cancel()
		case <-waitCtx.Done():
		}
	}()
	if werr := a.manager.Wait(waitCtx); werr != nil {
		logging.Warn().Err(werr).Msg("Stopped before backup finished, maintenance mode may still be on")
		return errors.Join(err, werr)
	}
	return err
}
