// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	go_ora "github.com/sijms/go-ora/v2"
)

// OracleEngine exports the tables owned by the connecting Oracle user.
type OracleEngine struct {
	sqlEngine
}

// NewOracleEngine returns the Oracle engine. Params.Name is the service name.
func NewOracleEngine() *OracleEngine {
	e := &OracleEngine{sqlEngine{desc: Descriptor{
		Name:            "oracle",
		Aliases:         []string{"oci"},
		Driver:          "oracle",
		DefaultPort:     1521,
		IdentQuote:      `"`,
		ListTablesQuery: "SELECT table_name FROM user_tables WHERE dropped = 'NO'",
		ColumnsQuery: "SELECT column_name, data_type, char_length, nullable " +
			"FROM user_tab_columns WHERE table_name = :1 ORDER BY column_id",
		PreStatements: []string{
			"ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD HH24:MI:SS'",
			"ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'YYYY-MM-DD HH24:MI:SS.FF'",
		},
		PostStatements: []string{
			"COMMIT",
		},
		TimeLayout:   "2006-01-02 15:04:05.999999999",
		TrueLiteral:  "1",
		FalseLiteral: "0",
	}}}
	e.dsn = e.buildDSN
	return e
}

func (e *OracleEngine) buildDSN(p Params) (string, error) {
	return go_ora.BuildUrl(p.Host, p.PortOr(e.desc.DefaultPort), p.Name, p.User, p.Password,
		map[string]string{"TIMEOUT": "30"}), nil
}
