// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package testinfra starts real database servers in Docker for the
// integration tests of the database exporter.
//
//	func TestMySQLDump(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    db, err := testinfra.StartMySQL(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, db)
//	    // db.Host, db.Port, db.User, db.Password, db.Database
//	}
//
// Tests are built only with the integration tag and skip when Docker is
// unavailable. The first run pulls the images.
package testinfra
