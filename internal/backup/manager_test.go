// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package backup

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/nextbackup/internal/dbexport"
	"github.com/tomtom215/nextbackup/internal/filesync"
	"github.com/tomtom215/nextbackup/internal/maintenance"
	"github.com/tomtom215/nextbackup/internal/notify"
	"github.com/tomtom215/nextbackup/internal/process"
	"github.com/tomtom215/nextbackup/internal/settings"
	"github.com/tomtom215/nextbackup/internal/store"
)

// testEnv wires a Manager to real components driven by a fake process runner
// and a real SQLite database.
type testEnv struct {
	root     string
	store    *store.MemoryStore
	runner   *process.FakeRunner
	maint    *maintenance.Controller
	notifier *recordingNotifier
	system   map[string]string
	filesDir string
	dbDir    string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Kind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()

	dbPath := filepath.Join(root, "nextcloud", "data", "owncloud.db")
	for _, dir := range []string{filepath.Dir(dbPath), filepath.Join(root, "nextcloud", "config")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{
		"CREATE TABLE oc_users (uid TEXT NOT NULL, displayname TEXT)",
		"INSERT INTO oc_users VALUES ('admin', NULL)",
	} {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	db.Close()

	e := &testEnv{
		root:     root,
		store:    store.NewMemoryStore(),
		runner:   process.NewFakeRunner(),
		notifier: &recordingNotifier{},
		system: map[string]string{
			dbexport.SysDBType: "sqlite3",
			dbexport.SysDBPath: dbPath,
		},
		filesDir: filepath.Join(root, "backup", "files"),
		dbDir:    filepath.Join(root, "backup", "db"),
	}
	e.maint = maintenance.NewController(maintenance.Config{
		Command: process.Command{Name: "occ", Args: []string{"maintenance:mode"}},
	}, e.runner)

	ctx := context.Background()
	set := settings.New(e.store, settings.BackupConfiguration{})
	if err := set.Save(ctx, settings.BackupConfiguration{
		FileBackupPath: e.filesDir, DatabaseBackupPath: e.dbDir, IntervalHours: 24,
	}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	return e
}

func (e *testEnv) manager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m, err := NewManager(Deps{
		Settings:    settings.New(e.store, settings.BackupConfiguration{}),
		Maintenance: e.maint,
		Database:    dbexport.New(dbexport.Config{}, nil, store.NewMapSystem(e.system)),
		Files: filesync.New(filesync.Config{
			Sources: []filesync.Source{
				{Name: "data", Path: filepath.Join(e.root, "nextcloud", "data")},
				{Name: "config", Path: filepath.Join(e.root, "nextcloud", "config")},
			},
			TempDir: e.root,
		}, e.runner),
		Notifier: e.notifier,
	}, cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func (e *testEnv) maintenanceCalls() []string {
	var out []string
	for _, c := range e.runner.CallsTo("occ") {
		out = append(out, c.Args[len(c.Args)-1])
	}
	return out
}

func (e *testEnv) storedStatus(t *testing.T) Status {
	t.Helper()
	v, err := e.store.GetValue(context.Background(), settings.AppNamespace, settings.KeyBackupStatus, "")
	if err != nil {
		t.Fatal(err)
	}
	return Status(v)
}

func TestPerformBackupSuccess(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t, Config{})
	ctx := context.Background()

	res, err := m.PerformBackup(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("PerformBackup: %v", err)
	}
	if res.RunID == "" || res.Trigger != TriggerManual {
		t.Errorf("unexpected result %+v", res)
	}
	if res.FilesPath != env.filesDir {
		t.Errorf("FilesPath = %s, want %s", res.FilesPath, env.filesDir)
	}
	if filepath.Dir(res.DatabaseFile) != env.dbDir || !strings.HasPrefix(filepath.Base(res.DatabaseFile), "nextcloud-db_") {
		t.Errorf("DatabaseFile = %s", res.DatabaseFile)
	}
	dump, err := os.ReadFile(res.DatabaseFile)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.Contains(string(dump), `VALUES ('admin', NULL);`) {
		t.Errorf("unexpected dump:\n%s", dump)
	}

	if got := strings.Join(env.maintenanceCalls(), ","); got != "--on,--off" {
		t.Errorf("maintenance calls = %s, want --on,--off", got)
	}
	if env.maint.Enabled() {
		t.Error("maintenance mode left enabled")
	}
	if n := len(env.runner.CallsTo("rsync")); n != 2 {
		t.Errorf("rsync calls = %d, want 2", n)
	}
	if s := env.storedStatus(t); s != StatusSuccess {
		t.Errorf("status = %s, want success", s)
	}
	if last, err := m.LastBackupTime(ctx); err != nil || last.IsZero() {
		t.Errorf("LastBackupTime = %v, %v", last, err)
	}

	runs, err := m.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != StatusSuccess || runs[0].RunID != res.RunID {
		t.Errorf("unexpected history %+v", runs)
	}
	if m.InProgress() {
		t.Error("InProgress after completion")
	}
	for _, dir := range []string{env.filesDir, env.dbDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if perm := info.Mode().Perm(); perm != 0o700 {
			t.Errorf("%s mode = %o, want 700", dir, perm)
		}
	}
}

func TestPartialTransferCountsAsSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.runner.OnArgs("rsync", "/data/", process.Result{ExitCode: filesync.PartialTransferCode, Output: "some files vanished"}, nil)
	m := env.manager(t, Config{})

	if _, err := m.PerformBackup(context.Background(), TriggerScheduled); err != nil {
		t.Fatalf("exit 23 must not fail the run: %v", err)
	}
	if s := env.storedStatus(t); s != StatusSuccess {
		t.Errorf("status = %s, want success", s)
	}
}

func TestMaintenanceDisabledWhenPhaseFails(t *testing.T) {
	tests := []struct {
		name       string
		script     func(env *testEnv)
		wantPhase  Phase
		wantRsync  int
		wantTarget interface{}
	}{
		{
			name: "file sync fails",
			script: func(env *testEnv) {
				env.runner.On("rsync", process.Result{ExitCode: 11, Output: "No space left on device"}, nil)
			},
			wantPhase:  PhaseFiles,
			wantRsync:  1,
			wantTarget: new(*filesync.Error),
		},
		{
			name: "database export fails",
			script: func(env *testEnv) {
				env.system[dbexport.SysDBPath] = filepath.Join(env.root, "missing.db")
			},
			wantPhase:  PhaseDatabase,
			wantRsync:  0,
			wantTarget: new(*dbexport.Error),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.script(env)
			m := env.manager(t, Config{})

			res, err := m.PerformBackup(context.Background(), TriggerManual)
			if err == nil {
				t.Fatal("expected error")
			}
			if res != nil {
				t.Errorf("failed run must not return a result, got %+v", res)
			}
			var be *Error
			if !errors.As(err, &be) || be.Phase != tt.wantPhase {
				t.Fatalf("expected phase %s error, got %v", tt.wantPhase, err)
			}
			if !errors.As(err, tt.wantTarget) {
				t.Errorf("expected %T in chain, got %v", tt.wantTarget, err)
			}
			if got := strings.Join(env.maintenanceCalls(), ","); got != "--on,--off" {
				t.Errorf("maintenance calls = %s, want --on,--off", got)
			}
			if env.maint.Enabled() {
				t.Error("maintenance mode left enabled")
			}
			if n := len(env.runner.CallsTo("rsync")); n != tt.wantRsync {
				t.Errorf("rsync calls = %d, want %d", n, tt.wantRsync)
			}
			if s := env.storedStatus(t); s != StatusError {
				t.Errorf("status = %s, want error", s)
			}
			if kinds := env.notifier.kinds(); len(kinds) != 1 || kinds[0] != notify.KindBackupFailed {
				t.Errorf("notifications = %v", kinds)
			}
		})
	}
}

func TestUnsupportedEngineFailsBeforeSideEffects(t *testing.T) {
	env := newTestEnv(t)
	env.system[dbexport.SysDBType] = "mssql"
	if err := env.store.SetValue(context.Background(), settings.AppNamespace, settings.KeyFileBackupFolder,
		filepath.Join(env.root, "never-created")); err != nil {
		t.Fatal(err)
	}
	m := env.manager(t, Config{})

	_, err := m.PerformBackup(context.Background(), TriggerManual)
	var unsupported *dbexport.UnsupportedEngineError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedEngineError, got %v", err)
	}
	var be *Error
	if !errors.As(err, &be) || be.Phase != PhaseValidate {
		t.Errorf("expected validate phase, got %v", err)
	}
	if calls := env.runner.Calls(); len(calls) != 0 {
		t.Errorf("no process may run, got %v", calls)
	}
	if _, statErr := os.Stat(filepath.Join(env.root, "never-created")); !os.IsNotExist(statErr) {
		t.Error("destination must not be created for an unsupported engine")
	}
	if s := env.storedStatus(t); s != StatusError {
		t.Errorf("status = %s, want error", s)
	}
}

func TestUnwritableDestinationIsConfigurationError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	env := newTestEnv(t)
	readOnly := filepath.Join(env.root, "ro")
	if err := os.Mkdir(readOnly, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(readOnly, 0o700) }) //nolint:errcheck // test cleanup
	if err := env.store.SetValue(context.Background(), settings.AppNamespace, settings.KeyFileBackupFolder,
		filepath.Join(readOnly, "files")); err != nil {
		t.Fatal(err)
	}
	m := env.manager(t, Config{})

	_, err := m.PerformBackup(context.Background(), TriggerManual)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Setting != settings.KeyFileBackupFolder {
		t.Errorf("Setting = %s", cfgErr.Setting)
	}
	if n := len(env.runner.CallsTo("occ")); n != 0 {
		t.Errorf("maintenance mode must never be entered, got %d calls", n)
	}
}

func TestEmptyDestinationIsConfigurationError(t *testing.T) {
	env := newTestEnv(t)
	if err := env.store.SetValue(context.Background(), settings.AppNamespace, settings.KeyDBBackupFolder, " "); err != nil {
		t.Fatal(err)
	}
	m := env.manager(t, Config{})

	_, err := m.PerformBackup(context.Background(), TriggerManual)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Setting != settings.KeyDBBackupFolder {
		t.Fatalf("expected ConfigurationError for %s, got %v", settings.KeyDBBackupFolder, err)
	}
	if len(env.runner.Calls()) != 0 {
		t.Error("no process may run")
	}
}

func TestInvalidStoredIntervalIsConfigurationError(t *testing.T) {
	tests := []struct {
		name     string
		interval string
	}{
		{"zero", "0"},
		{"not a number", "abc"},
		{"above one year", "8761"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if err := env.store.SetValue(context.Background(), settings.AppNamespace, settings.KeyBackupInterval, tt.interval); err != nil {
				t.Fatal(err)
			}
			m := env.manager(t, Config{})

			_, err := m.PerformBackup(context.Background(), TriggerManual)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) || cfgErr.Setting != settings.KeyBackupInterval {
				t.Fatalf("expected ConfigurationError for %s, got %v", settings.KeyBackupInterval, err)
			}
			if !errors.Is(err, settings.ErrInvalidInterval) {
				t.Errorf("error should wrap ErrInvalidInterval: %v", err)
			}
			if len(env.runner.Calls()) != 0 {
				t.Error("no process may run")
			}
		})
	}
}

func TestMaintenanceEnableFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	env.runner.OnArgs("occ", "--on", process.Result{ExitCode: 1, Output: "Nextcloud is not installed"}, nil)
	m := env.manager(t, Config{})

	_, err := m.PerformBackup(context.Background(), TriggerManual)
	var mErr *maintenance.Error
	if !errors.As(err, &mErr) || mErr.Action != maintenance.ActionEnable {
		t.Fatalf("expected maintenance enable error, got %v", err)
	}
	var be *Error
	if !errors.As(err, &be) || be.Phase != PhaseMaintenance {
		t.Errorf("expected maintenance phase, got %v", err)
	}
	if n := len(env.runner.CallsTo("rsync")); n != 0 {
		t.Errorf("no data may be touched, rsync ran %d times", n)
	}
	entries, _ := os.ReadDir(env.dbDir)
	if len(entries) != 0 {
		t.Errorf("no dump may be written, found %d entries", len(entries))
	}
}

func TestMaintenanceDisableFailureIsSurfaced(t *testing.T) {
	env := newTestEnv(t)
	env.runner.OnArgs("occ", "--off", process.Result{ExitCode: 1, Output: "config is read only"}, nil)
	m := env.manager(t, Config{})

	_, err := m.PerformBackup(context.Background(), TriggerManual)
	var mErr *maintenance.Error
	if !errors.As(err, &mErr) || mErr.Action != maintenance.ActionDisable {
		t.Fatalf("expected maintenance disable error, got %v", err)
	}
	kinds := env.notifier.kinds()
	if len(kinds) != 2 || kinds[0] != notify.KindMaintenanceStuck || kinds[1] != notify.KindBackupFailed {
		t.Errorf("notifications = %v, want [maintenance_stuck backup_failed]", kinds)
	}
	if s := env.storedStatus(t); s != StatusError {
		t.Errorf("status = %s, want error", s)
	}
}

func TestDisableFailureJoinsPhaseError(t *testing.T) {
	env := newTestEnv(t)
	env.runner.On("rsync", process.Result{ExitCode: 12}, nil)
	env.runner.OnArgs("occ", "--off", process.Result{ExitCode: 1}, nil)
	m := env.manager(t, Config{})

	_, err := m.PerformBackup(context.Background(), TriggerManual)
	var fErr *filesync.Error
	if !errors.As(err, &fErr) {
		t.Errorf("file error lost: %v", err)
	}
	var mErr *maintenance.Error
	if !errors.As(err, &mErr) {
		t.Errorf("maintenance error lost: %v", err)
	}
}

func TestStatusDefaultsToIdle(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t, Config{})
	s, err := m.Status(context.Background())
	if err != nil || s != StatusIdle {
		t.Errorf("Status = %s, %v; want idle", s, err)
	}
}

func TestStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	var seen []Status
	env.runner.Hook = func(c process.Command) {
		if c.Name == "rsync" {
			v, _ := env.store.GetValue(context.Background(), settings.AppNamespace, settings.KeyBackupStatus, "")
			seen = append(seen, Status(v))
		}
	}
	m := env.manager(t, Config{})
	if _, err := m.PerformBackup(context.Background(), TriggerManual); err != nil {
		t.Fatal(err)
	}
	for _, s := range seen {
		if s != StatusRunningFiles {
			t.Errorf("status during file sync = %s, want running_files", s)
		}
	}
	if !StatusRunningDB.IsRunning() || StatusSuccess.IsRunning() {
		t.Error("IsRunning mismatch")
	}
}

func TestStatusFromInterruptedRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.store.SetValue(ctx, settings.AppNamespace, settings.KeyBackupStatus, string(StatusRunningDB)); err != nil {
		t.Fatal(err)
	}
	m := env.manager(t, Config{})

	s, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if s != StatusRunningDB {
		t.Errorf("Status = %s, want the stored running_db", s)
	}
	if m.InProgress() {
		t.Error("InProgress = true with no run in flight")
	}
}

func TestSingleFlightJoinsRunningBackup(t *testing.T) {
	env := newTestEnv(t)
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	env.runner.Hook = func(c process.Command) {
		if c.Name == "occ" && c.Args[len(c.Args)-1] == "--on" {
			started <- struct{}{}
			<-release
		}
	}
	m := env.manager(t, Config{})
	ctx := context.Background()

	type outcome struct {
		res *Result
		err error
	}
	results := make(chan outcome, 2)
	go func() {
		r, err := m.PerformBackup(ctx, TriggerScheduled)
		results <- outcome{r, err}
	}()
	<-started
	if !m.InProgress() {
		t.Error("InProgress = false during run")
	}
	go func() {
		r, err := m.PerformBackup(ctx, TriggerManual)
		results <- outcome{r, err}
	}()
	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)

	a, b := <-results, <-results
	if a.err != nil || b.err != nil {
		t.Fatalf("errors: %v, %v", a.err, b.err)
	}
	if a.res.RunID != b.res.RunID {
		t.Errorf("expected one shared run, got %s and %s", a.res.RunID, b.res.RunID)
	}
	if n := len(env.runner.CallsTo("occ")); n != 2 {
		t.Errorf("maintenance toggled %d times, want 2", n)
	}
}

func TestWaitBlocksUntilRunFinishes(t *testing.T) {
	env := newTestEnv(t)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	env.runner.Hook = func(c process.Command) {
		if c.Name == "occ" && c.Args[len(c.Args)-1] == "--on" {
			started <- struct{}{}
			<-release
		}
	}
	m := env.manager(t, Config{})

	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() on idle manager = %v", err)
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		m.PerformBackup(context.Background(), TriggerScheduled) //nolint:errcheck // outcome checked via Wait
	}()
	<-started

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() during run = %v, want deadline exceeded", err)
	}

	waited := make(chan error, 1)
	go func() { waited <- m.Wait(context.Background()) }()
	close(release)

	select {
	case err := <-waited:
		if err != nil {
			t.Errorf("Wait() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait() did not return after the run finished")
	}
	if m.InProgress() {
		t.Error("InProgress after Wait returned")
	}
	if got := strings.Join(env.maintenanceCalls(), ","); got != "--on,--off" {
		t.Errorf("maintenance calls = %s, want --on,--off", got)
	}
	<-finished
}

func TestHistoryLimit(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t, Config{HistoryLimit: 2})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := m.PerformBackup(ctx, TriggerManual); err != nil {
			t.Fatal(err)
		}
		// dump names have second resolution
		time.Sleep(1100 * time.Millisecond)
	}
	runs, err := m.History(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("history length = %d, want 2", len(runs))
	}
	if runs, _ := m.History(ctx, 1); len(runs) != 1 {
		t.Errorf("History(1) returned %d entries", len(runs))
	}
}

func TestNewManagerRequiresDeps(t *testing.T) {
	if _, err := NewManager(Deps{}, Config{}); err == nil {
		t.Error("expected error for missing collaborators")
	}
}
