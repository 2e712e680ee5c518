// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/nextbackup/internal/store"
	"github.com/tomtom215/nextbackup/internal/validation"
)

func TestLoadDefaults(t *testing.T) {
	s := New(store.NewMemoryStore(), BackupConfiguration{})

	cfg, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("Load = %+v, want %+v", cfg, Defaults())
	}
}

func TestLoadConfiguredDefaults(t *testing.T) {
	s := New(store.NewMemoryStore(), BackupConfiguration{FileBackupPath: "/srv/files", IntervalHours: 6})

	cfg, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FileBackupPath != "/srv/files" || cfg.IntervalHours != 6 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.DatabaseBackupPath != DefaultDatabaseBackupPath {
		t.Errorf("DatabaseBackupPath = %s", cfg.DatabaseBackupPath)
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemoryStore(), BackupConfiguration{})

	want := BackupConfiguration{FileBackupPath: "/mnt/b/files", DatabaseBackupPath: "/mnt/b/db", IntervalHours: 12}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		cfg   BackupConfiguration
		field string
	}{
		{"zero interval", BackupConfiguration{FileBackupPath: "/a", DatabaseBackupPath: "/b", IntervalHours: 0}, "IntervalHours"},
		{"negative interval", BackupConfiguration{FileBackupPath: "/a", DatabaseBackupPath: "/b", IntervalHours: -1}, "IntervalHours"},
		{"empty files path", BackupConfiguration{FileBackupPath: " ", DatabaseBackupPath: "/b", IntervalHours: 1}, "FileBackupPath"},
		{"relative db path", BackupConfiguration{FileBackupPath: "/a", DatabaseBackupPath: "db", IntervalHours: 1}, "DatabaseBackupPath"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore()
			s := New(st, BackupConfiguration{})

			err := s.Save(ctx, tt.cfg)
			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Fields[0].Field != tt.field {
				t.Errorf("failed field = %s, want %s", verr.Fields[0].Field, tt.field)
			}
			if v, _ := st.GetValue(ctx, AppNamespace, KeyBackupInterval, "unset"); v != "unset" {
				t.Errorf("nothing should be stored, got interval %q", v)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{" 24 ", 24, false},
		{"8760", 8760, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"1.5", 0, true},
		{"8761", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseInterval(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInterval) {
					t.Errorf("ParseInterval(%q) error = %v, want ErrInvalidInterval", tt.raw, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseInterval(%q) = %d, %v; want %d", tt.raw, got, err, tt.want)
			}
		})
	}
}

func TestSaveInterval(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemoryStore(), BackupConfiguration{})

	for _, bad := range []string{"0", "-1", "abc"} {
		if _, err := s.SaveInterval(ctx, bad); !errors.Is(err, ErrInvalidInterval) {
			t.Errorf("SaveInterval(%q) = %v, want ErrInvalidInterval", bad, err)
		}
	}
	if hours, _ := s.IntervalHours(ctx); hours != DefaultIntervalHours {
		t.Errorf("interval changed by rejected input: %d", hours)
	}

	hours, err := s.SaveInterval(ctx, "48")
	if err != nil || hours != 48 {
		t.Fatalf("SaveInterval(48) = %d, %v", hours, err)
	}
	if got, _ := s.IntervalHours(ctx); got != 48 {
		t.Errorf("IntervalHours = %d, want 48", got)
	}
}

func TestCorruptStoredIntervalFallsBack(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	if err := st.SetValue(ctx, AppNamespace, KeyBackupInterval, "weekly"); err != nil {
		t.Fatal(err)
	}
	s := New(st, BackupConfiguration{IntervalHours: 3})
	if got, err := s.IntervalHours(ctx); err != nil || got != 3 {
		t.Errorf("IntervalHours = %d, %v; want 3", got, err)
	}
}

func TestStoredInterval(t *testing.T) {
	tests := []struct {
		name    string
		stored  string // "" leaves the key unset
		want    int
		wantErr bool
	}{
		{"unset uses default", "", 3, false},
		{"valid", "12", 12, false},
		{"zero", "0", 0, true},
		{"not a number", "abc", 0, true},
		{"negative", "-4", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore()
			if tt.stored != "" {
				if err := st.SetValue(ctx, AppNamespace, KeyBackupInterval, tt.stored); err != nil {
					t.Fatal(err)
				}
			}
			s := New(st, BackupConfiguration{IntervalHours: 3})

			got, err := s.StoredInterval(ctx)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInterval) {
					t.Errorf("StoredInterval() error = %v, want ErrInvalidInterval", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("StoredInterval() = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}
