// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

/*
Package main is the entry point for the Nextbackup server.

Nextbackup backs up a self-hosted cloud installation: it puts the
application into maintenance mode, dumps its database to a plain SQL file,
mirrors the data and config directories with rsync and takes the
application out of maintenance mode again, on a schedule or on demand.

# Application Architecture

Long-running parts run under a Suture v4 supervisor tree:

	RootSupervisor ("nextbackup")
	├── StoreSupervisor ("store-layer")
	│   └── store-gc (Badger value-log GC, badger store only)
	├── BackupSupervisor ("backup-layer")
	│   └── backup-scheduler (when scheduler.enabled)
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Configuration: Koanf v2 (defaults, YAML file, environment)
 2. Logging: zerolog
 3. Config Store: Badger or in-memory
 4. Backup engine: settings, process runner, maintenance controller,
    file synchronizer, database exporter, notifier, manager
 5. Scheduler
 6. HTTP API (chi)
 7. Supervisor tree

# Configuration

Sources, highest priority first:

  - Environment: NEXTBACKUP_SECTION__KEY, plus legacy names such as
    FILE_BACKUP_FOLDER, DB_BACKUP_FOLDER, BACKUP_INTERVAL, OCC_COMMAND
  - Config file: $CONFIG_PATH, ./config.yaml or /etc/nextbackup/config.yaml
  - Built-in defaults

Changes to the config file's logging section are applied without a
restart.

# Signal Handling

SIGINT and SIGTERM stop the tree: the HTTP server drains, the scheduler
waits for a backup in flight, then the store is closed.

# Example Usage

	export NEXTBACKUP_SYSTEM__DBTYPE=pgsql
	export DB_HOST=db DB_NAME=nextcloud DB_USER=nextcloud DB_PASSWORD=secret
	export OCC_COMMAND="sudo -u www-data php /var/www/nextcloud/occ maintenance:mode"
	./nextbackup

	curl -X POST http://localhost:8080/api/v1/backup/now
	curl http://localhost:8080/api/v1/backup/status
*/
package main
