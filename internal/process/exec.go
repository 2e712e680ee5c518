// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/tomtom215/nextbackup/internal/logging"
)

// maxOutput caps the captured output kept in Result; rsync can be chatty.
const maxOutput = 64 * 1024

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// DefaultTimeout applies when Command.Timeout is zero.
	DefaultTimeout time.Duration
}

// NewExecRunner returns a runner using timeout for commands without their own.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{DefaultTimeout: timeout}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: command comes from operator configuration, not user input
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = 5 * time.Second

	logging.Ctx(ctx).Debug().Str("command", c.String()).Dur("timeout", timeout).Msg("Running command")

	start := time.Now()
	output, err := cmd.CombinedOutput()
	res := Result{Output: truncate(output), Duration: time.Since(start)}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w after %s", c.Name, ErrTimeout, timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", c.Name, err)
	}
	return res, nil
}

func truncate(b []byte) string {
	if len(b) <= maxOutput {
		return string(b)
	}
	return "...(truncated)...\n" + string(b[len(b)-maxOutput:])
}
