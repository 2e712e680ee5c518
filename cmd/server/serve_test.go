// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestServeWaitsForBackupInProgress cancels the tree while the scheduled
// backup is inside maintenance mode and checks that serve returns only once
// maintenance mode has been switched off again.
func TestServeWaitsForBackupInProgress(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	calls := filepath.Join(dir, "maintenance.log")
	script := filepath.Join(dir, "maintenance.sh")
	body := "#!/bin/sh\necho \"$1\" >> " + calls + "\nif [ \"$1\" = \"--on\" ]; then sleep 1; fi\n"
	if err := os.WriteFile(script, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 50 * time.Millisecond
	cfg.Supervisor.ShutdownTimeout = 50 * time.Millisecond
	cfg.Maintenance.Command = "sh " + script
	cfg.Backup.FileBackupFolder = filepath.Join(dir, "files")
	cfg.Backup.DBBackupFolder = filepath.Join(dir, "db")
	cfg.System["datadirectory"] = filepath.Join(dir, "data")
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.InitialDelay = 0
	cfg.Scheduler.Recheck = 10 * time.Millisecond

	a, err := buildApp(cfg)
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, a, make(chan struct{})) }()

	deadline := time.Now().Add(5 * time.Second)
	for !a.manager.InProgress() {
		if time.Now().After(deadline) {
			t.Fatal("scheduled backup never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve() did not return after cancel")
	}

	if a.manager.InProgress() {
		t.Error("serve() returned while a backup was still running")
	}
	log, err := os.ReadFile(calls)
	if err != nil {
		t.Fatalf("read maintenance log: %v", err)
	}
	if got := strings.Fields(string(log)); len(got) != 2 || got[0] != "--on" || got[1] != "--off" {
		t.Errorf("maintenance calls = %v, want [--on --off]", got)
	}
}
