// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// SQLiteEngine exports SQLite databases. Columns come from PRAGMA
// table_info, indexes from sqlite_master.
type SQLiteEngine struct {
	sqlEngine
}

const sqliteIndexesQuery = "SELECT sql FROM sqlite_master " +
	"WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL ORDER BY name"

// NewSQLiteEngine returns the SQLite engine.
func NewSQLiteEngine() *SQLiteEngine {
	e := &SQLiteEngine{sqlEngine{desc: Descriptor{
		Name:       "sqlite",
		Aliases:    []string{"sqlite3"},
		Driver:     "sqlite3",
		IdentQuote: `"`,
		ListTablesQuery: "SELECT name FROM sqlite_master " +
			"WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		PreStatements: []string{
			"PRAGMA foreign_keys = OFF",
			"BEGIN TRANSACTION",
		},
		PostStatements: []string{
			"COMMIT",
			"PRAGMA foreign_keys = ON",
		},
		TimeLayout:   "2006-01-02 15:04:05.999999999-07:00",
		TrueLiteral:  "1",
		FalseLiteral: "0",
	}}}
	e.dsn = e.buildDSN
	return e
}

// DatabasePath is where the file lives: p.Path, or <datadirectory>/<dbname>.db.
func (e *SQLiteEngine) DatabasePath(p Params) string {
	if p.Path != "" {
		return p.Path
	}
	return filepath.Join(p.DataDir, p.Name+".db")
}

func (e *SQLiteEngine) buildDSN(p Params) (string, error) {
	path := e.DatabasePath(p)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("sqlite database %s: %w", path, err)
	}
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro&_busy_timeout=5000", nil
}

func (e *SQLiteEngine) columns(ctx context.Context, q Querier, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+e.QuoteIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			c       Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		c.Nullable = notNull == 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, errors.New("no columns")
	}
	return cols, nil
}

// EmitSchema implements Engine.
func (e *SQLiteEngine) EmitSchema(ctx context.Context, q Querier, w io.Writer, table string) error {
	cols, err := e.columns(ctx, q, table)
	if err != nil {
		return err
	}
	return writeCreateTable(w, e.QuoteIdentifier, table, cols)
}

// EmitIndexes implements IndexEmitter.
func (e *SQLiteEngine) EmitIndexes(ctx context.Context, q Querier, w io.Writer, table string) error {
	defs, err := queryStrings(ctx, q, sqliteIndexesQuery, table)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if _, err := io.WriteString(w, def+";\n"); err != nil {
			return err
		}
	}
	return nil
}
