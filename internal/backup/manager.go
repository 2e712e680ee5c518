// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
manager.go - Backup Orchestrator

The Manager sequences one backup run:

 1. validate      configuration, engine and destinations; no side effects
 2. maintenance   enter maintenance mode; failure is fatal
 3. database      export to the database destination
 4. files         mirror data and config directories
 5. maintenance   always leave maintenance mode (deferred)

Every phase is timed into Prometheus, every run is appended to the run
history, and failures are reported through the Notifier.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/nextbackup/internal/dbexport"
	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/metrics"
	"github.com/tomtom215/nextbackup/internal/notify"
	"github.com/tomtom215/nextbackup/internal/settings"
)

// MaintenanceController toggles maintenance mode of the protected application.
type MaintenanceController interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// DatabaseExporter writes a dump of the application database into a directory.
type DatabaseExporter interface {
	Resolve() (dbexport.Engine, dbexport.Params, error)
	BackupDatabase(ctx context.Context, dir string) (string, error)
}

// FileSynchronizer mirrors the application directories into a destination.
type FileSynchronizer interface {
	BackupFiles(ctx context.Context, destination string) (string, error)
}

// Deps are the collaborators of a Manager. Notifier may be nil.
type Deps struct {
	Settings    *settings.Settings
	Maintenance MaintenanceController
	Database    DatabaseExporter
	Files       FileSynchronizer
	Notifier    notify.Notifier
}

// Config tunes the Manager.
type Config struct {
	// DumpPrefix must match the exporter prefix; retention only touches
	// files named <DumpPrefix>_*.sql.
	DumpPrefix string
	Retention  RetentionPolicy
	// HistoryLimit caps the stored run history (default 50).
	HistoryLimit int
}

const singleFlightKey = "backup"

// Manager runs backups. It is safe for concurrent use.
type Manager struct {
	cfg         Config
	settings    *settings.Settings
	maintenance MaintenanceController
	database    DatabaseExporter
	files       FileSynchronizer
	notifier    notify.Notifier

	group      singleflight.Group
	inProgress atomic.Bool
	historyMu  sync.Mutex

	// active counts PerformBackup callers; idle is closed when it drops to 0.
	waitMu sync.Mutex
	active int
	idle   chan struct{}

	now func() time.Time
}

// NewManager validates deps and returns a Manager.
func NewManager(d Deps, cfg Config) (*Manager, error) {
	if d.Settings == nil || d.Maintenance == nil || d.Database == nil || d.Files == nil {
		return nil, errors.New("backup manager requires settings, maintenance, database and files collaborators")
	}
	if d.Notifier == nil {
		d.Notifier = notify.LogNotifier{}
	}
	if cfg.DumpPrefix == "" {
		cfg.DumpPrefix = dbexport.DefaultConfig().Prefix
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Manager{
		cfg:         cfg,
		settings:    d.Settings,
		maintenance: d.Maintenance,
		database:    d.Database,
		files:       d.Files,
		notifier:    d.Notifier,
		now:         time.Now,
	}, nil
}

// InProgress reports whether a run is active.
func (m *Manager) InProgress() bool {
	return m.inProgress.Load()
}

// PerformBackup runs one backup, or joins the run already in flight.
func (m *Manager) PerformBackup(ctx context.Context, trigger Trigger) (*Result, error) {
	defer m.track()()
	detached := context.WithoutCancel(ctx)
	v, err, shared := m.group.Do(singleFlightKey, func() (interface{}, error) {
		return m.run(detached, trigger)
	})
	if shared {
		logging.Ctx(ctx).Info().Str("trigger", string(trigger)).Msg("Joined backup run already in progress")
	}
	res, _ := v.(*Result)
	return res, err
}

// Wait blocks until no run is in flight or ctx is done. Call it before
// closing the config store on shutdown.
func (m *Manager) Wait(ctx context.Context) error {
	m.waitMu.Lock()
	if m.active == 0 {
		m.waitMu.Unlock()
		return nil
	}
	idle := m.idle
	m.waitMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) track() func() {
	m.waitMu.Lock()
	if m.active == 0 {
		m.idle = make(chan struct{})
	}
	m.active++
	m.waitMu.Unlock()

	return func() {
		m.waitMu.Lock()
		m.active--
		if m.active == 0 {
			close(m.idle)
		}
		m.waitMu.Unlock()
	}
}

func (m *Manager) run(ctx context.Context, trigger Trigger) (res *Result, err error) {
	m.inProgress.Store(true)
	metrics.BackupInProgress.Set(1)
	defer func() {
		m.inProgress.Store(false)
		metrics.BackupInProgress.Set(0)
	}()

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.Ctx(ctx)

	res = &Result{RunID: runID, Trigger: trigger, StartedAt: m.now()}
	log.Info().Str("trigger", string(trigger)).Msg("Backup started")
	m.setStatus(ctx, StatusRunning)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backup panicked: %v", r)
		}
		res.CompletedAt = m.now()
		res.Duration = res.CompletedAt.Sub(res.StartedAt)
		metrics.RecordRun(string(trigger), res.Duration, err)
		m.finish(ctx, res, err)
		if err != nil {
			res = nil
		}
	}()

	err = m.execute(ctx, res)
	return res, err
}

// execute runs the phases. The deferred Disable runs on every path once
// Enable has succeeded, including panics.
func (m *Manager) execute(ctx context.Context, res *Result) (err error) {
	cfg, err := phaseRun(ctx, PhaseValidate, func() (settings.BackupConfiguration, error) {
		return m.validate(ctx)
	})
	if err != nil {
		return err
	}

	if _, err := phaseRun(ctx, PhaseMaintenance, func() (struct{}, error) {
		return struct{}{}, m.maintenance.Enable(ctx)
	}); err != nil {
		return err
	}
	defer func() {
		if derr := m.maintenance.Disable(ctx); derr != nil {
			derr = &Error{Phase: PhaseMaintenance, Err: derr}
			logging.Ctx(ctx).Error().Err(derr).Msg("Could not leave maintenance mode, manual intervention required")
			m.alert(ctx, notify.Event{
				Kind:    notify.KindMaintenanceStuck,
				RunID:   res.RunID,
				Trigger: string(res.Trigger),
				Phase:   string(PhaseMaintenance),
				Message: derr.Error(),
			})
			if err == nil {
				err = derr
			} else {
				err = errors.Join(err, derr)
			}
		}
	}()

	m.setStatus(ctx, StatusRunningDB)
	dumpFile, err := phaseRun(ctx, PhaseDatabase, func() (string, error) {
		return m.database.BackupDatabase(ctx, cfg.DatabaseBackupPath)
	})
	if err != nil {
		m.setStatus(ctx, StatusErrorDB)
		return err
	}
	res.DatabaseFile = dumpFile
	m.setStatus(ctx, StatusSuccessDB)

	m.setStatus(ctx, StatusRunningFiles)
	filesPath, err := phaseRun(ctx, PhaseFiles, func() (string, error) {
		return m.files.BackupFiles(ctx, cfg.FileBackupPath)
	})
	if err != nil {
		m.setStatus(ctx, StatusErrorFiles)
		return err
	}
	res.FilesPath = filesPath
	m.setStatus(ctx, StatusSuccessFiles)

	res.Pruned = m.applyRetention(ctx, cfg.DatabaseBackupPath, dumpFile)
	return nil
}

// phaseRun times fn, logs its outcome and wraps failures in *Error.
func phaseRun[T any](ctx context.Context, p Phase, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	d := time.Since(start)
	metrics.RecordPhase(string(p), d, err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("phase", string(p)).Dur("duration", d).Msg("Backup phase failed")
		return v, &Error{Phase: p, Err: err}
	}
	logging.Ctx(ctx).Info().Str("phase", string(p)).Dur("duration", d).Msg("Backup phase completed")
	return v, nil
}

func (m *Manager) finish(ctx context.Context, res *Result, err error) {
	log := logging.Ctx(ctx)
	entry := Run{
		RunID:        res.RunID,
		Trigger:      res.Trigger,
		FilesPath:    res.FilesPath,
		DatabaseFile: res.DatabaseFile,
		StartedAt:    res.StartedAt,
		CompletedAt:  res.CompletedAt,
		DurationMs:   res.Duration.Milliseconds(),
	}

	if err != nil {
		entry.Status = StatusError
		entry.Message = err.Error()
		var be *Error
		if errors.As(err, &be) {
			entry.Phase = be.Phase
		}
		m.setStatus(ctx, StatusError)
		m.recordRun(ctx, entry)
		log.Error().Err(err).Str("phase", string(entry.Phase)).Dur("duration", res.Duration).Msg("Backup failed")
		m.alert(ctx, notify.Event{
			Kind:    notify.KindBackupFailed,
			RunID:   res.RunID,
			Trigger: string(res.Trigger),
			Phase:   string(entry.Phase),
			Message: err.Error(),
		})
		return
	}

	entry.Status = StatusSuccess
	m.setStatus(ctx, StatusSuccess)
	m.setLastBackupTime(ctx, res.CompletedAt)
	m.recordRun(ctx, entry)
	log.Info().
		Str("database_file", res.DatabaseFile).
		Str("files_path", res.FilesPath).
		Dur("duration", res.Duration).
		Msg("Backup completed")
	m.alert(ctx, notify.Event{
		Kind:    notify.KindBackupSucceeded,
		RunID:   res.RunID,
		Trigger: string(res.Trigger),
		Message: "backup completed",
	})
}

func (m *Manager) alert(ctx context.Context, ev notify.Event) {
	ev.Time = m.now().UTC()
	if err := m.notifier.Notify(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", string(ev.Kind)).Msg("Operator notification failed")
	}
}
