// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package filesync

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/nextbackup/internal/process"
)

// testEnv holds a source tree (data + config) and a destination.
type testEnv struct {
	dataDir   string
	configDir string
	dest      string
	tempDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		dataDir:   filepath.Join(root, "nextcloud", "data"),
		configDir: filepath.Join(root, "nextcloud", "config"),
		dest:      filepath.Join(root, "backup", "files"),
		tempDir:   filepath.Join(root, "tmp"),
	}
	for _, d := range []string{env.dataDir, env.configDir, env.tempDir} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	return env
}

func (e *testEnv) config() Config {
	return Config{
		Sources: []Source{{Name: "data", Path: e.dataDir}, {Name: "config", Path: e.configDir}},
		TempDir: e.tempDir,
	}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestBackupFiles_Success(t *testing.T) {
	env := newTestEnv(t)
	fake := process.NewFakeRunner()

	var excludeContents []string
	fake.Hook = func(cmd process.Command) {
		for _, a := range cmd.Args {
			if path, ok := strings.CutPrefix(a, "--exclude-from="); ok {
				data, err := os.ReadFile(path)
				if err != nil {
					t.Errorf("exclusion file not readable during sync: %v", err)
					return
				}
				excludeContents = append(excludeContents, string(data))
			}
		}
	}

	s := New(env.config(), fake)
	got, err := s.BackupFiles(context.Background(), env.dest)
	if err != nil {
		t.Fatalf("BackupFiles() error = %v", err)
	}
	if got != env.dest {
		t.Errorf("BackupFiles() = %q, want %q", got, env.dest)
	}

	calls := fake.CallsTo("rsync")
	if len(calls) != 2 {
		t.Fatalf("expected 2 rsync calls, got %d", len(calls))
	}
	first := strings.Join(calls[0].Args, " ")
	for _, want := range []string{"-a", "--delete", "--delete-excluded", env.dataDir + "/", filepath.Join(env.dest, "data") + "/"} {
		if !strings.Contains(first, want) {
			t.Errorf("rsync args %q missing %q", first, want)
		}
	}
	if !strings.HasSuffix(strings.Join(calls[1].Args, " "), env.configDir+"/ "+filepath.Join(env.dest, "config")+"/") {
		t.Errorf("second call should mirror config: %v", calls[1].Args)
	}

	if len(excludeContents) != 2 {
		t.Fatalf("expected exclusion file on both calls, got %d", len(excludeContents))
	}
	var want bytes.Buffer
	if _, err := DefaultPolicy().WriteTo(&want); err != nil {
		t.Fatal(err)
	}
	if excludeContents[0] != want.String() {
		t.Errorf("exclusion file = %q, want %q", excludeContents[0], want.String())
	}

	if left := tempFiles(t, env.tempDir); len(left) != 0 {
		t.Errorf("temporary exclusion file not removed: %v", left)
	}
	info, err := os.Stat(env.dest)
	if err != nil {
		t.Fatalf("destination not created: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("destination should be created with 0700, got %v", info.Mode().Perm())
	}
}

func TestBackupFiles_PartialTransferIsWarning(t *testing.T) {
	env := newTestEnv(t)
	fake := process.NewFakeRunner()
	fake.On("rsync", process.Result{ExitCode: PartialTransferCode, Output: "rsync: opendir failed: Permission denied (13)"}, nil)

	if _, err := New(env.config(), fake).BackupFiles(context.Background(), env.dest); err != nil {
		t.Fatalf("exit %d must not fail the phase, got %v", PartialTransferCode, err)
	}
	if n := len(fake.CallsTo("rsync")); n != 2 {
		t.Errorf("expected both sources to sync, got %d calls", n)
	}
}

func TestBackupFiles_FatalExitCode(t *testing.T) {
	env := newTestEnv(t)
	fake := process.NewFakeRunner()
	fake.On("rsync", process.Result{ExitCode: 11, Output: "rsync error: error in file IO (code 11)"}, nil)

	_, err := New(env.config(), fake).BackupFiles(context.Background(), env.dest)
	var fErr *Error
	if !errors.As(err, &fErr) {
		t.Fatalf("BackupFiles() error = %v, want *filesync.Error", err)
	}
	if fErr.ExitCode != 11 || fErr.Source != "data" {
		t.Errorf("unexpected error fields: %+v", fErr)
	}
	if !strings.Contains(err.Error(), "error in file IO") {
		t.Errorf("error should carry captured output: %v", err)
	}
	if n := len(fake.CallsTo("rsync")); n != 1 {
		t.Errorf("sync must stop at the first fatal source, got %d calls", n)
	}
	if left := tempFiles(t, env.tempDir); len(left) != 0 {
		t.Errorf("temporary exclusion file not removed on failure: %v", left)
	}
}

func TestBackupFiles_RunnerError(t *testing.T) {
	env := newTestEnv(t)
	fake := process.NewFakeRunner()
	fake.On("rsync", process.Result{ExitCode: -1}, process.ErrTimeout)

	_, err := New(env.config(), fake).BackupFiles(context.Background(), env.dest)
	if !errors.Is(err, process.ErrTimeout) {
		t.Fatalf("BackupFiles() error = %v, want wrapped ErrTimeout", err)
	}
	if left := tempFiles(t, env.tempDir); len(left) != 0 {
		t.Errorf("temporary exclusion file not removed on timeout: %v", left)
	}
}

func TestBackupFiles_MissingSource(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.config()
	cfg.Sources[0].Path = filepath.Join(env.dataDir, "does-not-exist")
	fake := process.NewFakeRunner()

	_, err := New(cfg, fake).BackupFiles(context.Background(), env.dest)
	var fErr *Error
	if !errors.As(err, &fErr) {
		t.Fatalf("BackupFiles() error = %v, want *filesync.Error", err)
	}
	if len(fake.Calls()) != 0 {
		t.Errorf("rsync must not run for a missing source")
	}
}

func TestBackupFiles_NoSources(t *testing.T) {
	_, err := New(Config{}, process.NewFakeRunner()).BackupFiles(context.Background(), t.TempDir())
	var fErr *Error
	if !errors.As(err, &fErr) {
		t.Fatalf("BackupFiles() error = %v, want *filesync.Error", err)
	}
}

func TestSelfExclusion(t *testing.T) {
	s := New(Config{}, process.NewFakeRunner())
	tests := []struct {
		name        string
		source      string
		destination string
		want        string
	}{
		{"outside", "/var/www/nextcloud/data", "/backup/nextcloud", ""},
		{"inside", "/var/www/nextcloud/data", "/var/www/nextcloud/data/backups/files", "/backups/files/"},
		{"inside excluded dir", "/var/www/nextcloud/data", "/var/www/nextcloud/data/tmp/files", ""},
		{"sibling with common prefix", "/var/www/nextcloud/data", "/var/www/nextcloud/data2", ""},
		{"same dir", "/var/www/nextcloud/data", "/var/www/nextcloud/data", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.selfExclusion(tt.source, tt.destination); got != tt.want {
				t.Errorf("selfExclusion(%q, %q) = %q, want %q", tt.source, tt.destination, got, tt.want)
			}
		})
	}
}

func TestBackupFiles_DestinationInsideSource(t *testing.T) {
	env := newTestEnv(t)
	dest := filepath.Join(env.dataDir, "backups")
	fake := process.NewFakeRunner()

	if _, err := New(env.config(), fake).BackupFiles(context.Background(), dest); err != nil {
		t.Fatalf("BackupFiles() error = %v", err)
	}
	args := strings.Join(fake.CallsTo("rsync")[0].Args, " ")
	if !strings.Contains(args, "--exclude=/backups/") {
		t.Errorf("expected self exclusion in %q", args)
	}
}

func TestBackupFiles_RealRsync(t *testing.T) {
	if _, err := exec.LookPath("rsync"); err != nil {
		t.Skip("rsync not installed")
	}
	env := newTestEnv(t)
	write := func(path, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(env.dataDir, "alice", "files", "photo.jpg"), "jpeg")
	write(filepath.Join(env.dataDir, "nextcloud.log"), "log")
	write(filepath.Join(env.dataDir, "alice", "cache", "thumb"), "cache")
	write(filepath.Join(env.dataDir, "alice", "files_trashbin", "old.txt"), "trash")
	write(filepath.Join(env.configDir, "config.php"), "<?php")
	// stale file from a previous run must be removed
	write(filepath.Join(env.dest, "data", "stale.txt"), "stale")

	s := New(env.config(), process.NewExecRunner(0))
	if _, err := s.BackupFiles(context.Background(), env.dest); err != nil {
		t.Fatalf("BackupFiles() error = %v", err)
	}

	mustExist := []string{"data/alice/files/photo.jpg", "config/config.php"}
	mustNotExist := []string{"data/nextcloud.log", "data/alice/cache/thumb", "data/alice/files_trashbin/old.txt", "data/stale.txt"}
	for _, p := range mustExist {
		if _, err := os.Stat(filepath.Join(env.dest, p)); err != nil {
			t.Errorf("expected %s in backup: %v", p, err)
		}
	}
	for _, p := range mustNotExist {
		if _, err := os.Stat(filepath.Join(env.dest, p)); !os.IsNotExist(err) {
			t.Errorf("expected %s to be absent from backup", p)
		}
	}
}
