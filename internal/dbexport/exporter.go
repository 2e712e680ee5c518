// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package dbexport serializes a relational database into one portable,
// replayable SQL script.
//
// Engines (MySQL/MariaDB, PostgreSQL, SQLite, Oracle, DuckDB) implement the
// Engine interface and are selected through a Registry keyed on the
// protected application's "dbtype" system value. The script contains a
// header comment, engine specific session statements, one CREATE TABLE per
// table rebuilt from catalog metadata, one INSERT per row, indexes where the
// engine supports it, and closing session statements.
//
// Known limitations: binary and large-object values are exported as NULL,
// defaults and foreign keys are not reproduced, and table order follows
// the catalog.
package dbexport

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/nextbackup/internal/logging"
	"github.com/tomtom215/nextbackup/internal/metrics"
	"github.com/tomtom215/nextbackup/internal/store"
)

// Export steps reported in Error.Step.
const (
	StepResolve    = "resolve"
	StepConnect    = "connect"
	StepListTables = "list_tables"
	StepSchema     = "schema"
	StepData       = "data"
	StepIndexes    = "indexes"
	StepWrite      = "write"
)

// Error is the DatabaseBackupError of the backup error taxonomy.
type Error struct {
	Engine string
	Step   string
	Table  string
	Err    error
}

func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("database backup failed (%s, %s of table %s): %v", e.Engine, e.Step, e.Table, e.Err)
	}
	if e.Engine != "" {
		return fmt.Sprintf("database backup failed (%s, %s): %v", e.Engine, e.Step, e.Err)
	}
	return fmt.Sprintf("database backup failed (%s): %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config configures the exporter.
type Config struct {
	// Prefix names dump files <Prefix>_<YYYYMMDD_HHMMSS>.sql.
	Prefix string
	// Timeout bounds one complete export.
	Timeout time.Duration
	// BreakerFailures consecutive connection failures open the breaker
	// for BreakerCooldown; further runs fail without dialing.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultConfig returns the exporter defaults.
func DefaultConfig() Config {
	return Config{
		Prefix:          "nextcloud-db",
		Timeout:         2 * time.Hour,
		BreakerFailures: 3,
		BreakerCooldown: 5 * time.Minute,
	}
}

// Stats summarizes one dump.
type Stats struct {
	Engine string
	Tables int
	Rows   int
}

// Exporter runs the database phase of a backup.
type Exporter struct {
	cfg      Config
	registry *Registry
	system   store.System
	breaker  *gobreaker.CircuitBreaker[*sql.DB]
	now      func() time.Time
}

// New returns an Exporter reading connection parameters from system.
func New(cfg Config, registry *Registry, system store.System) *Exporter {
	def := DefaultConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}
	if registry == nil {
		registry = DefaultRegistry()
	}

	x := &Exporter{cfg: cfg, registry: registry, system: system, now: time.Now}
	x.breaker = gobreaker.NewCircuitBreaker[*sql.DB](gobreaker.Settings{
		Name:    "dbexport-connect",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Database connection circuit breaker changed state")
		},
	})
	return x
}

// Resolve returns the configured engine and its connection parameters.
func (x *Exporter) Resolve() (Engine, Params, error) {
	p := ParamsFromSystem(x.system)
	eng, err := x.registry.Lookup(p.Engine)
	if err != nil {
		return nil, p, &Error{Engine: p.Engine, Step: StepResolve, Err: err}
	}
	return eng, p, nil
}

// FileName returns the dump file name for a run started at t.
func (x *Exporter) FileName(t time.Time) string {
	return fmt.Sprintf("%s_%s.sql", x.cfg.Prefix, t.Format("20060102_150405"))
}

// BackupDatabase dumps the configured database into dir and returns the
// path of the written file. Nothing is left behind on failure.
func (x *Exporter) BackupDatabase(ctx context.Context, dir string) (string, error) {
	eng, p, err := x.Resolve()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, x.cfg.Timeout)
	defer cancel()

	db, err := x.breaker.Execute(func() (*sql.DB, error) {
		return eng.Connect(ctx, p)
	})
	if err != nil {
		return "", &Error{Engine: eng.Name(), Step: StepConnect, Err: err}
	}
	defer db.Close() //nolint:errcheck // read-only connection

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", &Error{Engine: eng.Name(), Step: StepWrite, Err: err}
	}
	startedAt := x.now()
	path := filepath.Join(dir, x.FileName(startedAt))
	partial := path + ".partial"

	//nolint:gosec // G304: path is built from operator configuration
	f, err := os.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", &Error{Engine: eng.Name(), Step: StepWrite, Err: err}
	}
	fail := func(err error) (string, error) {
		f.Close()          //nolint:errcheck,gosec // already failing
		os.Remove(partial) //nolint:errcheck,gosec // Best effort cleanup
		return "", err
	}

	bw := bufio.NewWriterSize(f, 256*1024)
	stats, err := x.dump(ctx, bw, eng, db, p.Name, startedAt)
	if err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(&Error{Engine: eng.Name(), Step: StepWrite, Err: err})
	}
	if err := f.Sync(); err != nil {
		return fail(&Error{Engine: eng.Name(), Step: StepWrite, Err: err})
	}
	if err := f.Close(); err != nil {
		os.Remove(partial) //nolint:errcheck,gosec // Best effort cleanup
		return "", &Error{Engine: eng.Name(), Step: StepWrite, Err: err}
	}
	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial) //nolint:errcheck,gosec // Best effort cleanup
		return "", &Error{Engine: eng.Name(), Step: StepWrite, Err: err}
	}

	if info, err := os.Stat(path); err == nil {
		metrics.DBExportBytes.Set(float64(info.Size()))
	}
	logging.Ctx(ctx).Info().
		Str("engine", stats.Engine).
		Int("tables", stats.Tables).
		Int("rows", stats.Rows).
		Str("file", path).
		Msg("Database export completed")
	return path, nil
}

// Dump writes the script for the database behind q to w.
func (x *Exporter) Dump(ctx context.Context, w io.Writer, eng Engine, q Querier, database string) (Stats, error) {
	return x.dump(ctx, w, eng, q, database, x.now())
}

func (x *Exporter) dump(ctx context.Context, w io.Writer, eng Engine, q Querier, database string, at time.Time) (Stats, error) {
	name := eng.Name()
	stats := Stats{Engine: name}
	werr := func(err error) error { return &Error{Engine: name, Step: StepWrite, Err: err} }

	desc := eng.Descriptor()
	header := fmt.Sprintf("-- Nextbackup database dump\n-- Engine: %s\n-- Database: %s\n-- Generated: %s\n\n",
		name, database, at.UTC().Format("2006-01-02 15:04:05 UTC"))
	if _, err := io.WriteString(w, header); err != nil {
		return stats, werr(err)
	}
	if err := writeStatements(w, desc.PreStatements); err != nil {
		return stats, werr(err)
	}

	tables, err := eng.ListTables(ctx, q)
	if err != nil {
		return stats, &Error{Engine: name, Step: StepListTables, Err: err}
	}

	indexer, hasIndexes := eng.(IndexEmitter)
	for _, table := range tables {
		if _, err := io.WriteString(w, "\n-- Table: "+eng.QuoteIdentifier(table)+"\n"); err != nil {
			return stats, werr(err)
		}
		if err := eng.EmitSchema(ctx, q, w, table); err != nil {
			return stats, &Error{Engine: name, Step: StepSchema, Table: table, Err: err}
		}
		n, err := eng.EmitData(ctx, q, w, table)
		if err != nil {
			return stats, &Error{Engine: name, Step: StepData, Table: table, Err: err}
		}
		if hasIndexes {
			if err := indexer.EmitIndexes(ctx, q, w, table); err != nil {
				return stats, &Error{Engine: name, Step: StepIndexes, Table: table, Err: err}
			}
		}
		stats.Tables++
		stats.Rows += n
		metrics.DBExportRows.WithLabelValues(name).Add(float64(n))
		metrics.DBExportTables.WithLabelValues(name).Inc()
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return stats, werr(err)
	}
	if err := writeStatements(w, desc.PostStatements); err != nil {
		return stats, werr(err)
	}
	return stats, nil
}

func writeStatements(w io.Writer, stmts []string) error {
	for _, s := range stmts {
		if _, err := io.WriteString(w, s+";\n"); err != nil {
			return err
		}
	}
	return nil
}
