// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// PostgresEngine exports PostgreSQL databases, including indexes.
type PostgresEngine struct {
	sqlEngine
}

const postgresIndexesQuery = "SELECT indexdef FROM pg_indexes " +
	"WHERE schemaname = current_schema() AND tablename = $1 ORDER BY indexname"

// NewPostgresEngine returns the PostgreSQL engine.
func NewPostgresEngine() *PostgresEngine {
	return &PostgresEngine{sqlEngine{desc: Descriptor{
		Name:        "postgres",
		Aliases:     []string{"pgsql", "postgresql"},
		Driver:      "pgx",
		DefaultPort: 5432,
		IdentQuote:  `"`,
		ListTablesQuery: "SELECT table_name FROM information_schema.tables " +
			"WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'",
		ColumnsQuery: "SELECT column_name, " +
			"CASE WHEN data_type IN ('USER-DEFINED', 'ARRAY') THEN udt_name ELSE data_type END, " +
			"character_maximum_length, is_nullable " +
			"FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 " +
			"ORDER BY ordinal_position",
		PreStatements: []string{
			"SET client_encoding = 'UTF8'",
			"SET standard_conforming_strings = on",
			"SET session_replication_role = replica",
		},
		PostStatements: []string{
			"SET session_replication_role = DEFAULT",
		},
		TimeLayout:   "2006-01-02 15:04:05.999999Z07:00",
		TrueLiteral:  "true",
		FalseLiteral: "false",
	}}}
}

// Connect parses a keyword/value connection string with pgx and opens it
// through the pgx stdlib adapter. Unix socket directories work as host.
func (e *PostgresEngine) Connect(ctx context.Context, p Params) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(e.connString(p))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	return pingOrClose(ctx, stdlib.OpenDB(*cfg))
}

func (e *PostgresEngine) connString(p Params) string {
	kv := []string{
		"host=" + pgQuote(p.Host),
		"port=" + strconv.Itoa(p.PortOr(e.desc.DefaultPort)),
		"dbname=" + pgQuote(p.Name),
		"user=" + pgQuote(p.User),
		"connect_timeout=30",
		"application_name=nextbackup",
	}
	if p.Password != "" {
		kv = append(kv, "password="+pgQuote(p.Password))
	}
	return strings.Join(kv, " ")
}

func pgQuote(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// EmitIndexes writes the index definitions (primary keys included) of table.
func (e *PostgresEngine) EmitIndexes(ctx context.Context, q Querier, w io.Writer, table string) error {
	defs, err := queryStrings(ctx, q, postgresIndexesQuery, table)
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
