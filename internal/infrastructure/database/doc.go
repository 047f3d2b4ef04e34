// Package database provides the SQLite store behind lightsync's sync history.
//
// It manages:
//   - The connection, opened in WAL mode with a busy timeout
//   - Versioned schema migrations read from an fs.FS
//   - Health checks for the status API
//
// The database is optional; when database.enabled is false nothing is opened
// and forwarded states are not journalled.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql, and are applied oldest first.
package database
