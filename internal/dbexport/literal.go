// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// literal renders one scanned value. NULL and binary values become the
// NULL literal; everything else is emitted as an escaped string literal,
// which every supported engine coerces on insert.
func (e *sqlEngine) literal(v any, binary bool) string {
	if v == nil || binary {
		return "NULL"
	}
	switch x := v.(type) {
	case []byte:
		return e.quoteString(string(x))
	case string:
		return e.quoteString(x)
	case bool:
		if x {
			return e.desc.TrueLiteral
		}
		return e.desc.FalseLiteral
	case time.Time:
		return e.quoteString(x.Format(e.desc.TimeLayout))
	case int64:
		return e.quoteString(strconv.FormatInt(x, 10))
	case float64:
		return e.quoteString(strconv.FormatFloat(x, 'g', -1, 64))
	case fmt.Stringer:
		return e.quoteString(x.String())
	default:
		return e.quoteString(fmt.Sprint(x))
	}
}

func (e *sqlEngine) quoteString(s string) string {
	if e.desc.BackslashEscapes {
		return "'" + mysqlEscaper.Replace(s) + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// mysqlEscaper mirrors mysql_real_escape_string.
var mysqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)
