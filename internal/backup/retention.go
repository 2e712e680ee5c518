// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package backup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/nextbackup/internal/logging"
)

// RetentionPolicy prunes old database dumps after a successful run. The
// zero value keeps every dump.
type RetentionPolicy struct {
	// MaxCount keeps at most this many dumps (0 = unlimited).
	MaxCount int `koanf:"max_count"`
	// MaxAgeDays removes dumps older than this (0 = unlimited).
	MaxAgeDays int `koanf:"max_age_days"`
	// MinCount dumps are always kept, whatever their age.
	MinCount int `koanf:"min_count"`
}

// Enabled reports whether the policy can remove anything.
func (p RetentionPolicy) Enabled() bool {
	return p.MaxCount > 0 || p.MaxAgeDays > 0
}

type dumpFile struct {
	path    string
	modTime time.Time
}

// listDumps returns <prefix>_*.sql files in dir, newest first.
func listDumps(dir, prefix string) ([]dumpFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dumps []dumpFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"_") || !strings.HasSuffix(name, ".sql") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dumps = append(dumps, dumpFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}
	// Names embed the timestamp, so they order chronologically.
	sort.Slice(dumps, func(i, j int) bool {
		return filepath.Base(dumps[i].path) > filepath.Base(dumps[j].path)
	})
	return dumps, nil
}

// selectExpired returns the dumps the policy removes. dumps must be newest first.
func selectExpired(dumps []dumpFile, p RetentionPolicy, now time.Time) []dumpFile {
	var expired []dumpFile
	cutoff := now.AddDate(0, 0, -p.MaxAgeDays)
	for i, d := range dumps {
		if i < p.MinCount {
			continue
		}
		if p.MaxCount > 0 && i >= p.MaxCount {
			expired = append(expired, d)
			continue
		}
		if p.MaxAgeDays > 0 && d.modTime.Before(cutoff) {
			expired = append(expired, d)
		}
	}
	return expired
}

// applyRetention removes expired dumps from dir, never the one just
// written. Failures are logged only.
func (m *Manager) applyRetention(ctx context.Context, dir, current string) []string {
	if !m.cfg.Retention.Enabled() {
		return nil
	}
	log := logging.Ctx(ctx)

	dumps, err := listDumps(dir, m.cfg.DumpPrefix)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Could not list database dumps for retention")
		return nil
	}

	var removed []string
	for _, d := range selectExpired(dumps, m.cfg.Retention, m.now()) {
		if d.path == current {
			continue
		}
		if err := os.Remove(d.path); err != nil {
			log.Warn().Err(err).Str("file", d.path).Msg("Could not remove expired database dump")
			continue
		}
		removed = append(removed, d.path)
	}
	if len(removed) > 0 {
		log.Info().Int("removed", len(removed)).Msg("Retention policy applied to database dumps")
	}
	return removed
}
