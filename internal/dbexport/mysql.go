// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLEngine exports MySQL and MariaDB databases.
type MySQLEngine struct {
	sqlEngine
}

// NewMySQLEngine returns the MySQL/MariaDB engine.
func NewMySQLEngine() *MySQLEngine {
	e := &MySQLEngine{sqlEngine{desc: Descriptor{
		Name:             "mysql",
		Aliases:          []string{"mariadb"},
		Driver:           "mysql",
		DefaultPort:      3306,
		IdentQuote:       "`",
		BackslashEscapes: true,
		ListTablesQuery: "SELECT TABLE_NAME FROM information_schema.TABLES " +
			"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'",
		ColumnsQuery: "SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, IS_NULLABLE " +
			"FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? " +
			"ORDER BY ORDINAL_POSITION",
		PreStatements: []string{
			"SET NAMES utf8mb4",
			"SET FOREIGN_KEY_CHECKS = 0",
			"SET UNIQUE_CHECKS = 0",
			"SET SQL_MODE = 'NO_AUTO_VALUE_ON_ZERO'",
		},
		PostStatements: []string{
			"SET UNIQUE_CHECKS = 1",
			"SET FOREIGN_KEY_CHECKS = 1",
		},
		TimeLayout:   "2006-01-02 15:04:05.999999",
		TrueLiteral:  "1",
		FalseLiteral: "0",
	}}}
	e.dsn = e.buildDSN
	return e
}

// buildDSN accepts a TCP host or a unix socket path in p.Host.
func (e *MySQLEngine) buildDSN(p Params) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.DBName = p.Name
	cfg.Timeout = 30 * time.Second
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if strings.HasPrefix(p.Host, "/") {
		cfg.Net = "unix"
		cfg.Addr = p.Host
	} else {
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(p.Host, strconv.Itoa(p.PortOr(e.desc.DefaultPort)))
	}
	return cfg.FormatDSN(), nil
}
