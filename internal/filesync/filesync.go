// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package filesync mirrors the protected application's data and
// configuration directories into the backup destination with rsync.
//
// The mirror is one-way and delete-reconciling: files missing from the
// source, and files that became excluded, are removed from the destination.
package filesync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/metrics"
	"github.com/tomtom215/nextbackup/internal/process"
)

// PartialTransferCode is rsync's "partial transfer due to error" status,
// typically caused by unreadable files. It is logged, not raised.
const PartialTransferCode = 23

// Source is one directory to mirror. Name is the sub-directory created under
// the destination.
type Source struct {
	Name string
	Path string
}

// Error is the FileBackupError of the backup error taxonomy.
type Error struct {
	Source   string
	ExitCode int
	Output   string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Source != "":
		return fmt.Sprintf("file backup of %s failed: %v", e.Source, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("file backup failed: %v", e.Err)
	default:
		return fmt.Sprintf("file backup of %s failed: sync exited with status %d: %s",
			e.Source, e.ExitCode, strings.TrimSpace(e.Output))
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config configures the synchronizer.
type Config struct {
	// Rsync is the sync command; defaults to "rsync".
	Rsync process.Command
	// Sources are mirrored in order.
	Sources []Source
	Timeout time.Duration
	// TempDir holds the temporary exclusion file; defaults to os.TempDir().
	TempDir string
	// Policy defaults to DefaultPolicy().
	Policy *Policy
}

// Synchronizer runs the file phase of a backup.
type Synchronizer struct {
	cfg    Config
	runner process.Runner
}

// New returns a Synchronizer.
func New(cfg Config, runner process.Runner) *Synchronizer {
	if cfg.Rsync.Name == "" {
		cfg.Rsync = process.Command{Name: "rsync"}
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy()
	}
	return &Synchronizer{cfg: cfg, runner: runner}
}

// Policy returns the exclusion policy in use.
func (s *Synchronizer) Policy() *Policy {
	return s.cfg.Policy
}

// BackupFiles mirrors every source into destination/<source name> and
// returns destination.
func (s *Synchronizer) BackupFiles(ctx context.Context, destination string) (string, error) {
	if len(s.cfg.Sources) == 0 {
		return "", &Error{Err: errors.New("no source directories configured")}
	}
	if err := os.MkdirAll(destination, 0o700); err != nil {
		return "", &Error{Err: fmt.Errorf("create destination %s: %w", destination, err)}
	}

	excludeFile, err := s.writeExcludeFile()
	if err != nil {
		return "", &Error{Err: err}
	}
	defer os.Remove(excludeFile) //nolint:errcheck // Best effort cleanup

	for _, src := range s.cfg.Sources {
		if err := s.syncOne(ctx, src, destination, excludeFile); err != nil {
			return "", err
		}
	}
	return destination, nil
}

func (s *Synchronizer) writeExcludeFile() (string, error) {
	f, err := os.CreateTemp(s.cfg.TempDir, "nextbackup-exclude-*.txt")
	if err != nil {
		return "", fmt.Errorf("create exclusion file: %w", err)
	}
	if _, err := s.cfg.Policy.WriteTo(f); err != nil {
		f.Close()           //nolint:errcheck,gosec // already failing
		os.Remove(f.Name()) //nolint:errcheck,gosec // Best effort cleanup
		return "", fmt.Errorf("write exclusion file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name()) //nolint:errcheck,gosec // Best effort cleanup
		return "", fmt.Errorf("close exclusion file: %w", err)
	}
	return f.Name(), nil
}

func (s *Synchronizer) syncOne(ctx context.Context, src Source, destination, excludeFile string) error {
	info, err := os.Stat(src.Path)
	if err != nil {
		return &Error{Source: src.Name, Err: fmt.Errorf("stat source: %w", err)}
	}
	if !info.IsDir() {
		return &Error{Source: src.Name, Err: fmt.Errorf("source %s is not a directory", src.Path)}
	}

	target := filepath.Join(destination, src.Name)
	args := []string{"-a", "--delete", "--delete-excluded", "--exclude-from=" + excludeFile}
	if self := s.selfExclusion(src.Path, destination); self != "" {
		args = append(args, "--exclude="+self)
	}
	args = append(args, withTrailingSlash(src.Path), withTrailingSlash(target))

	cmd := s.cfg.Rsync.With(args...)
	cmd.Timeout = s.cfg.Timeout

	log := logging.Ctx(ctx).With().Str("source", src.Name).Str("target", target).Logger()
	log.Info().Msg("File sync started")

	res, err := s.runner.Run(ctx, cmd)
	if err != nil {
		return &Error{Source: src.Name, ExitCode: res.ExitCode, Output: res.Output, Err: err}
	}
	metrics.RecordSyncExit(src.Name, res.ExitCode)

	switch res.ExitCode {
	case 0:
		log.Info().Dur("duration", res.Duration).Msg("File sync completed")
		return nil
	case PartialTransferCode:
		log.Warn().
			Int("exit_code", res.ExitCode).
			Str("output", lastLines(res.Output, 20)).
			Msg("File sync completed with partial transfer, some files were skipped")
		return nil
	default:
		return &Error{Source: src.Name, ExitCode: res.ExitCode, Output: res.Output}
	}
}

// selfExclusion returns an anchored exclusion for destination when it lies
// inside source and the policy does not already exclude it.
func (s *Synchronizer) selfExclusion(source, destination string) string {
	rel, err := filepath.Rel(filepath.Clean(source), filepath.Clean(destination))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	rel = filepath.ToSlash(rel) + "/"
	if s.cfg.Policy.Excludes(rel) {
		return ""
	}
	return "/" + rel
}

func withTrailingSlash(p string) string {
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return p
	}
	return p + string(filepath.Separator)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
