// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	"errors"
	"net/url"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tomtom215/nextbackup/internal/store"
)

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		id   string
		want string
	}{
		{"mysql", "mysql"},
		{"MariaDB", "mysql"},
		{"pgsql", "postgres"},
		{"postgresql", "postgres"},
		{"sqlite3", "sqlite"},
		{" sqlite ", "sqlite"},
		{"oci", "oracle"},
		{"duckdb", "duckdb"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			e, err := r.Lookup(tt.id)
			if err != nil {
				t.Fatalf("Lookup(%q): %v", tt.id, err)
			}
			if e.Name() != tt.want {
				t.Errorf("Lookup(%q) = %s, want %s", tt.id, e.Name(), tt.want)
			}
		})
	}
}

func TestRegistryUnsupported(t *testing.T) {
	_, err := DefaultRegistry().Lookup("mssql")
	var unsupported *UnsupportedEngineError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedEngineError, got %v", err)
	}
	want := []string{"duckdb", "mysql", "oracle", "postgres", "sqlite"}
	if !reflect.DeepEqual(unsupported.Supported, want) {
		t.Errorf("Supported = %v, want %v", unsupported.Supported, want)
	}
	if !strings.Contains(err.Error(), `"mssql"`) {
		t.Errorf("error should name the engine: %v", err)
	}
}

func TestParamsFromSystem(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   Params
	}{
		{
			name:   "defaults",
			values: nil,
			want:   Params{Engine: "sqlite3", Host: "localhost", Name: "nextcloud"},
		},
		{
			name: "host with port",
			values: map[string]string{
				SysDBType: "MySQL", SysDBHost: "db.internal:3307", SysDBName: "cloud",
				SysDBUser: "nc", SysDBPassword: "secret",
			},
			want: Params{Engine: "mysql", Host: "db.internal", Port: 3307, Name: "cloud", User: "nc", Password: "secret"},
		},
		{
			name:   "explicit port wins",
			values: map[string]string{SysDBType: "pgsql", SysDBHost: "db:1", SysDBPort: "5433"},
			want:   Params{Engine: "pgsql", Host: "db:1", Port: 5433, Name: "nextcloud"},
		},
		{
			name:   "unix socket",
			values: map[string]string{SysDBType: "mysql", SysDBHost: "/run/mysqld/mysqld.sock"},
			want:   Params{Engine: "mysql", Host: "/run/mysqld/mysqld.sock", Name: "nextcloud"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParamsFromSystem(store.NewMapSystem(tt.values))
			if got != tt.want {
				t.Errorf("ParamsFromSystem = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	e := NewMySQLEngine()
	dsn, err := e.buildDSN(Params{Host: "db", User: "nc", Password: "pw", Name: "cloud"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dsn, "nc:pw@tcp(db:3306)/cloud?") {
		t.Errorf("unexpected dsn %s", dsn)
	}

	dsn, err = e.buildDSN(Params{Host: "/run/mysqld/mysqld.sock", User: "nc", Name: "cloud"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dsn, "@unix(/run/mysqld/mysqld.sock)/cloud") {
		t.Errorf("unexpected socket dsn %s", dsn)
	}
}

func TestPostgresConnString(t *testing.T) {
	cs := NewPostgresEngine().connString(Params{Host: "pg", Name: "cloud", User: "nc", Password: `p'w`})
	for _, want := range []string{"host='pg'", "port=5432", "dbname='cloud'", `password='p\'w'`} {
		if !strings.Contains(cs, want) {
			t.Errorf("conn string %q missing %q", cs, want)
		}
	}
}

func TestOracleDSN(t *testing.T) {
	dsn, err := NewOracleEngine().buildDSN(Params{Host: "ora", Name: "XE", User: "nc", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse %s: %v", dsn, err)
	}
	if u.Scheme != "oracle" || u.Host != "ora:1521" || u.Path != "/XE" {
		t.Errorf("unexpected dsn %s", dsn)
	}
}

func TestSQLiteDatabasePath(t *testing.T) {
	e := NewSQLiteEngine()
	if got := e.DatabasePath(Params{Path: "/x/y.db"}); got != "/x/y.db" {
		t.Errorf("explicit path = %s", got)
	}
	want := filepath.Join("/var/www/data", "owncloud.db")
	if got := e.DatabasePath(Params{DataDir: "/var/www/data", Name: "owncloud"}); got != want {
		t.Errorf("derived path = %s, want %s", got, want)
	}
	if _, err := e.buildDSN(Params{Path: filepath.Join(t.TempDir(), "absent.db")}); err == nil {
		t.Error("expected error for a missing database file")
	}
}
