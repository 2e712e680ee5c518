// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package process runs external commands (rsync, the maintenance toggle)
// synchronously and returns their exit status and combined output.
//
// A non-zero exit status is data, not an error: Run returns a nil error and
// the exit code in Result. Errors are reserved for commands that could not
// be started, were cancelled, or exceeded their timeout, so callers decide
// which exit codes are fatal.
package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// ErrTimeout is returned when a command is killed after exceeding its timeout.
var ErrTimeout = errors.New("command timed out")

// DefaultTimeout bounds commands that do not set their own.
const DefaultTimeout = 30 * time.Minute

// Command describes one invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string // appended to the current environment
	Timeout time.Duration
}

// String renders the command as a shell-quoted line for logs.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// With returns a copy of c with extra arguments appended.
func (c Command) With(args ...string) Command {
	out := c
	out.Args = append(append([]string(nil), c.Args...), args...)
	return out
}

// ParseCommandLine splits a shell-style command line (quotes and escapes
// honored, no expansion) into a Command.
//
//	cmd, _ := process.ParseCommandLine(`sudo -u www-data php "/var/www/nextcloud/occ"`)
func ParseCommandLine(line string) (Command, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse command line %q: %w", line, err)
	}
	if len(words) == 0 || strings.TrimSpace(words[0]) == "" {
		return Command{}, fmt.Errorf("parse command line %q: empty command", line)
	}
	return Command{Name: words[0], Args: words[1:]}, nil
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Success reports a zero exit code.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}
