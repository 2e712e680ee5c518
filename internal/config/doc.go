// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package config loads Nextbackup's process configuration with Koanf v2.

# Configuration Sources

Layers are applied in order, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: $CONFIG_PATH, else config.yaml / config.yml in the working
    directory, else /etc/nextbackup/config.yaml
 3. Environment variables

# Environment Variables

Any key can be set with NEXTBACKUP_ followed by the upper-cased path, using
a double underscore between levels:

	NEXTBACKUP_SERVER__PORT=9000
	NEXTBACKUP_BACKUP__RETENTION__MAX_COUNT=14
	NEXTBACKUP_NOTIFICATIONS__WEBHOOK__HEADERS="Authorization=Bearer abc,X-Env=prod"

A fixed set of legacy names (LOG_LEVEL, HTTP_PORT, DB_TYPE, DB_HOST, ...)
is also understood; see legacyEnv.

# Example config.yaml

	server:
	  port: 8080
	backup:
	  interval_hours: 12
	  retention:
	    max_count: 14
	    min_count: 3
	maintenance:
	  command: sudo -u www-data php /var/www/nextcloud/occ maintenance:mode
	system:
	  datadirectory: /var/www/nextcloud/data
	  dbtype: pgsql
	  dbhost: db
	  dbname: nextcloud
	  dbuser: nextcloud
	  dbpassword: secret

# System Values

The system section stands in for the protected application's own
configuration (Nextcloud's config.php). Keys are case-insensitive and
unset keys fall back to datadirectory=/var/www/nextcloud/data and
dbtype=sqlite.

# Validation

Load validates every section and fails on the first invalid value, so a
misconfigured process never starts.
*/
package config
