// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	"net"
	"strconv"
	"strings"

	"github.com/tomtom215/nextbackup/internal/store"
)

// System value keys, named after the protected application's config.php.
const (
	SysDBType        = "dbtype"
	SysDBHost        = "dbhost"
	SysDBPort        = "dbport"
	SysDBName        = "dbname"
	SysDBUser        = "dbuser"
	SysDBPassword    = "dbpassword"
	SysDBPath        = "dbpath"
	SysDataDirectory = "datadirectory"
)

// Params are the connection parameters of one export.
type Params struct {
	Engine   string
	Host     string // host name, or unix socket path
	Port     int    // 0 selects the engine default
	Name     string
	User     string
	Password string
	Path     string // explicit file for file based engines
	DataDir  string
}

// PortOr returns p.Port, or def when unset.
func (p Params) PortOr(def int) int {
	if p.Port > 0 {
		return p.Port
	}
	return def
}

// ParamsFromSystem reads connection parameters from system values. A
// "host:port" dbhost is split when dbport is not set.
func ParamsFromSystem(sys store.System) Params {
	p := Params{
		Engine:   strings.ToLower(strings.TrimSpace(sys.GetSystemValue(SysDBType, "sqlite3"))),
		Host:     sys.GetSystemValue(SysDBHost, "localhost"),
		Name:     sys.GetSystemValue(SysDBName, "nextcloud"),
		User:     sys.GetSystemValue(SysDBUser, ""),
		Password: sys.GetSystemValue(SysDBPassword, ""),
		Path:     sys.GetSystemValue(SysDBPath, ""),
		DataDir:  sys.GetSystemValue(SysDataDirectory, ""),
	}
	if port, err := strconv.Atoi(sys.GetSystemValue(SysDBPort, "")); err == nil && port > 0 {
		p.Port = port
	} else if !strings.HasPrefix(p.Host, "/") {
		if host, portStr, err := net.SplitHostPort(p.Host); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				p.Host, p.Port = host, port
			}
		}
	}
	return p
}
