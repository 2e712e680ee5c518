// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver
)

// DuckDBEngine exports a DuckDB database file opened read-only.
type DuckDBEngine struct {
	sqlEngine
}

// NewDuckDBEngine returns the DuckDB engine.
func NewDuckDBEngine() *DuckDBEngine {
	e := &DuckDBEngine{sqlEngine{desc: Descriptor{
		Name:       "duckdb",
		Driver:     "duckdb",
		IdentQuote: `"`,
		ListTablesQuery: "SELECT table_name FROM information_schema.tables " +
			"WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'",
		ColumnsQuery: "SELECT column_name, data_type, character_maximum_length, is_nullable " +
			"FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? " +
			"ORDER BY ordinal_position",
		PreStatements:  []string{"BEGIN TRANSACTION"},
		PostStatements: []string{"COMMIT"},
		TimeLayout:     "2006-01-02 15:04:05.999999",
		TrueLiteral:    "true",
		FalseLiteral:   "false",
	}}}
	e.dsn = e.buildDSN
	return e
}

func (e *DuckDBEngine) buildDSN(p Params) (string, error) {
	path := p.Path
	if path == "" {
		path = filepath.Join(p.DataDir, p.Name+".duckdb")
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("duckdb database %s: %w", path, err)
	}
	// Autoinstall is disabled so a dump never reaches out to the network.
	return path + "?access_mode=read_only&autoinstall_known_extensions=false&autoload_known_extensions=false", nil
}
