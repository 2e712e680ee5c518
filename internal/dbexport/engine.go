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
	"time"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Engine is the per-engine export capability set.
type Engine interface {
	Name() string
	Descriptor() Descriptor
	Connect(ctx context.Context, p Params) (*sql.DB, error)
	ListTables(ctx context.Context, q Querier) ([]string, error)
	EmitSchema(ctx context.Context, q Querier, w io.Writer, table string) error
	EmitData(ctx context.Context, q Querier, w io.Writer, table string) (int, error)
	QuoteIdentifier(name string) string
}

// IndexEmitter is implemented by engines that can reproduce indexes and
// primary keys after the data of a table.
type IndexEmitter interface {
	EmitIndexes(ctx context.Context, q Querier, w io.Writer, table string) error
}

// Descriptor is the fixed dialect table entry of one engine.
type Descriptor struct {
	Name        string
	Aliases     []string
	Driver      string
	DefaultPort int // 0 for file based engines

	// IdentQuote wraps identifiers; embedded quotes are doubled.
	IdentQuote string
	// BackslashEscapes selects MySQL style string escaping.
	BackslashEscapes bool

	ListTablesQuery string
	// ColumnsQuery takes the table name as its only parameter and returns
	// name, data type, max length (nullable) and a nullability flag.
	ColumnsQuery string

	PreStatements  []string
	PostStatements []string

	TimeLayout   string
	TrueLiteral  string
	FalseLiteral string
}

// Column is the catalog metadata used to rebuild CREATE TABLE.
type Column struct {
	Name     string
	Type     string
	Length   int64 // 0 when the type carries no length
	Nullable bool
}

// lengthTypes are the only types whose catalog length is rendered; text and
// blob types report huge lengths that are not valid in DDL.
var lengthTypes = map[string]bool{
	"CHAR": true, "VARCHAR": true, "CHARACTER": true, "CHARACTER VARYING": true,
	"NCHAR": true, "NVARCHAR": true, "VARCHAR2": true, "NVARCHAR2": true,
	"BINARY": true, "VARBINARY": true, "RAW": true, "BIT VARYING": true,
}

// binaryTypes are exported as NULL.
var binaryTypes = map[string]bool{
	"BLOB": true, "TINYBLOB": true, "MEDIUMBLOB": true, "LONGBLOB": true,
	"BINARY": true, "VARBINARY": true, "BYTEA": true, "RAW": true,
	"LONG RAW": true, "LONGRAW": true, "BFILE": true, "IMAGE": true,
}

func isBinaryType(dbType string) bool {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return binaryTypes[t]
}

// sqlEngine implements the catalog driven parts shared by every engine.
// Engine types embed it and override what their dialect does differently.
type sqlEngine struct {
	desc Descriptor
	dsn  func(Params) (string, error)
}

func (e *sqlEngine) Name() string           { return e.desc.Name }
func (e *sqlEngine) Descriptor() Descriptor { return e.desc }

func (e *sqlEngine) QuoteIdentifier(name string) string {
	q := e.desc.IdentQuote
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// Connect opens the database and verifies it answers.
func (e *sqlEngine) Connect(ctx context.Context, p Params) (*sql.DB, error) {
	dsn, err := e.dsn(p)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(e.desc.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.desc.Name, err)
	}
	return pingOrClose(ctx, db)
}

func pingOrClose(ctx context.Context, db *sql.DB) (*sql.DB, error) {
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck,gosec // already failing
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func (e *sqlEngine) ListTables(ctx context.Context, q Querier) ([]string, error) {
	return queryStrings(ctx, q, e.desc.ListTablesQuery)
}

func (e *sqlEngine) columns(ctx context.Context, q Querier, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, e.desc.ColumnsQuery, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c        Column
			length   sql.NullInt64
			nullable string
		)
		if err := rows.Scan(&c.Name, &c.Type, &length, &nullable); err != nil {
			return nil, err
		}
		c.Length = length.Int64
		c.Nullable = strings.HasPrefix(strings.ToUpper(nullable), "Y")
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (e *sqlEngine) EmitSchema(ctx context.Context, q Querier, w io.Writer, table string) error {
	cols, err := e.columns(ctx, q, table)
	if err != nil {
		return err
	}
	return writeCreateTable(w, e.QuoteIdentifier, table, cols)
}

func writeCreateTable(w io.Writer, quote func(string) string, table string, cols []Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("table %s has no columns in the catalog", table)
	}
	var b strings.Builder
	b.WriteString("CREATE TABLE " + quote(table) + " (\n")
	for i, c := range cols {
		b.WriteString("  " + quote(c.Name) + " " + columnType(c))
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func columnType(c Column) string {
	t := strings.ToUpper(strings.TrimSpace(c.Type))
	if c.Length > 0 && lengthTypes[t] {
		return t + "(" + strconv.FormatInt(c.Length, 10) + ")"
	}
	return t
}

// EmitData writes one INSERT per row and returns the row count.
func (e *sqlEngine) EmitData(ctx context.Context, q Querier, w io.Writer, table string) (int, error) {
	rows, err := q.QueryContext(ctx, "SELECT * FROM "+e.QuoteIdentifier(table))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return 0, err
	}
	binary := make([]bool, len(types))
	quoted := make([]string, len(names))
	for i := range names {
		binary[i] = isBinaryType(types[i].DatabaseTypeName())
		quoted[i] = e.QuoteIdentifier(names[i])
	}
	prefix := "INSERT INTO " + e.QuoteIdentifier(table) + " (" + strings.Join(quoted, ", ") + ") VALUES ("

	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}
	literals := make([]string, len(names))

	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		for i, v := range values {
			literals[i] = e.literal(v, binary[i])
		}
		if _, err := io.WriteString(w, prefix+strings.Join(literals, ", ")+");\n"); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func queryStrings(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
