// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDumps(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("-- dump\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListDumpsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	writeDumps(t, dir,
		"nextcloud-db_20260101_000000.sql",
		"nextcloud-db_20260301_000000.sql",
		"nextcloud-db_20260201_000000.sql",
		"nextcloud-db_20260401_000000.sql.partial",
		"other_20260101_000000.sql",
		"notes.txt",
	)
	dumps, err := listDumps(dir, "nextcloud-db")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"nextcloud-db_20260301_000000.sql",
		"nextcloud-db_20260201_000000.sql",
		"nextcloud-db_20260101_000000.sql",
	}
	if len(dumps) != len(want) {
		t.Fatalf("got %d dumps, want %d", len(dumps), len(want))
	}
	for i, d := range dumps {
		if filepath.Base(d.path) != want[i] {
			t.Errorf("dumps[%d] = %s, want %s", i, filepath.Base(d.path), want[i])
		}
	}
}

func TestSelectExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	dumps := []dumpFile{
		{path: "a", modTime: now.Add(-1 * day)},
		{path: "b", modTime: now.Add(-5 * day)},
		{path: "c", modTime: now.Add(-10 * day)},
		{path: "d", modTime: now.Add(-40 * day)},
	}

	tests := []struct {
		name   string
		policy RetentionPolicy
		want   []string
	}{
		{"keep all", RetentionPolicy{}, nil},
		{"max count", RetentionPolicy{MaxCount: 2}, []string{"c", "d"}},
		{"max age", RetentionPolicy{MaxAgeDays: 7}, []string{"c", "d"}},
		{"min count protects old", RetentionPolicy{MaxAgeDays: 3, MinCount: 3}, []string{"d"}},
		{"count and age", RetentionPolicy{MaxCount: 3, MaxAgeDays: 30}, []string{"d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectExpired(dumps, tt.policy, now)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d expired, want %v", len(got), tt.want)
			}
			for i := range got {
				if got[i].path != tt.want[i] {
					t.Errorf("expired[%d] = %s, want %s", i, got[i].path, tt.want[i])
				}
			}
		})
	}
}

func TestRetentionAfterSuccessfulRun(t *testing.T) {
	env := newTestEnv(t)
	writeDumps(t, env.dbDir,
		"nextcloud-db_20200101_000000.sql",
		"nextcloud-db_20200102_000000.sql",
	)
	m := env.manager(t, Config{Retention: RetentionPolicy{MaxCount: 2}})

	res, err := m.PerformBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pruned) != 1 || filepath.Base(res.Pruned[0]) != "nextcloud-db_20200101_000000.sql" {
		t.Errorf("Pruned = %v", res.Pruned)
	}
	if _, err := os.Stat(res.DatabaseFile); err != nil {
		t.Errorf("current dump removed: %v", err)
	}
}
