// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package filesync

import (
	"bufio"
	"io"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// defaultExclusions keeps logs, caches, temp and trash, raw upload staging
// and version history out of the backup. Order is preserved in the file.
var defaultExclusions = []string{
	"*.log",
	"nextcloud.log*",
	"cache/",
	"*/cache/",
	"tmp/",
	"temp/",
	".opcache/",
	"files_trashbin/",
	"uploads/",
	"*/uploads/",
	"files_versions/",
	"appdata_*/preview/",
}

// Policy is an ordered, immutable list of rsync exclusion patterns. The same
// patterns are compiled into a gitignore matcher so the synchronizer can ask
// whether a path is already excluded.
type Policy struct {
	patterns []string
	matcher  *ignore.GitIgnore
}

// DefaultPolicy returns the built-in exclusion set.
func DefaultPolicy() *Policy {
	return NewPolicy(defaultExclusions...)
}

// NewPolicy builds a policy from patterns; blank entries are dropped.
func NewPolicy(patterns ...string) *Policy {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return &Policy{patterns: kept, matcher: ignore.CompileIgnoreLines(kept...)}
}

// Patterns returns a copy of the patterns in order.
func (p *Policy) Patterns() []string {
	return append([]string(nil), p.patterns...)
}

// Excludes reports whether rel (slash separated, relative to a sync root)
// is excluded. Directories must carry a trailing slash.
func (p *Policy) Excludes(rel string) bool {
	return p.matcher.MatchesPath(rel)
}

// WriteTo writes one pattern per line, the format rsync --exclude-from reads.
func (p *Policy) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, pattern := range p.patterns {
		m, err := bw.WriteString(pattern + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
