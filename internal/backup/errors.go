// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package backup

import "fmt"

// Error is returned by PerformBackup and names the phase that failed.
// The wrapped error is one of ConfigurationError, maintenance.Error,
// dbexport.Error (possibly around dbexport.UnsupportedEngineError) or
// filesync.Error.
type Error struct {
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backup %s phase failed: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an unusable backup configuration, found before
// any side effect on the protected application.
type ConfigurationError struct {
	Setting string
	Path    string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := "invalid backup configuration"
	if e.Setting != "" {
		msg += ": " + e.Setting
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
