// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package maintenance toggles the protected application's maintenance mode
// by running its administrative command (for Nextcloud: occ maintenance:mode).
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/metrics"
	"github.com/tomtom215/nextbackup/internal/process"
)

// Action is the direction of a toggle.
type Action string

const (
	ActionEnable  Action = "enable"
	ActionDisable Action = "disable"
)

// Error reports a failed toggle. It is the MaintenanceModeError of the
// backup error taxonomy.
type Error struct {
	Action   Action
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("maintenance mode %s failed: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("maintenance mode %s failed: %s exited with status %d: %s",
		e.Action, e.Command, e.ExitCode, strings.TrimSpace(e.Output))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config describes the toggle command.
type Config struct {
	// Command is the base command, e.g. "php /var/www/nextcloud/occ maintenance:mode".
	Command process.Command
	// EnableArgs and DisableArgs are appended to Command.
	EnableArgs  []string
	DisableArgs []string
	Timeout     time.Duration
}

// Controller enables and disables maintenance mode. It performs no retries.
type Controller struct {
	cfg     Config
	runner  process.Runner
	enabled atomic.Bool
}

// NewController returns a Controller running cfg.Command through runner.
func NewController(cfg Config, runner process.Runner) *Controller {
	if len(cfg.EnableArgs) == 0 {
		cfg.EnableArgs = []string{"--on"}
	}
	if len(cfg.DisableArgs) == 0 {
		cfg.DisableArgs = []string{"--off"}
	}
	return &Controller{cfg: cfg, runner: runner}
}

// Enable switches maintenance mode on.
func (c *Controller) Enable(ctx context.Context) error {
	if err := c.toggle(ctx, ActionEnable, c.cfg.EnableArgs); err != nil {
		return err
	}
	c.enabled.Store(true)
	metrics.MaintenanceModeActive.Set(1)
	return nil
}

// Disable switches maintenance mode off. On failure the application is
// assumed to still be in maintenance mode.
func (c *Controller) Disable(ctx context.Context) error {
	if err := c.toggle(ctx, ActionDisable, c.cfg.DisableArgs); err != nil {
		return err
	}
	c.enabled.Store(false)
	metrics.MaintenanceModeActive.Set(0)
	return nil
}

// Enabled reports the last state this controller successfully set.
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

func (c *Controller) toggle(ctx context.Context, action Action, args []string) error {
	cmd := c.cfg.Command.With(args...)
	cmd.Timeout = c.cfg.Timeout

	res, err := c.runner.Run(ctx, cmd)
	if err == nil && res.Success() {
		logging.Ctx(ctx).Info().
			Str("action", string(action)).
			Dur("duration", res.Duration).
			Msg("Maintenance mode toggled")
		return nil
	}

	metrics.MaintenanceToggleFailures.WithLabelValues(string(action)).Inc()
	mErr := &Error{
		Action:   action,
		Command:  cmd.String(),
		ExitCode: res.ExitCode,
		Output:   res.Output,
		Err:      err,
	}
	logging.Ctx(ctx).Error().
		Str("action", string(action)).
		Int("exit_code", res.ExitCode).
		Str("output", strings.TrimSpace(res.Output)).
		Err(err).
		Msg("Maintenance mode toggle failed")
	return mErr
}
