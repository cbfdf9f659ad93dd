// Package database provides SQLite connectivity and schema migrations for
// SmartEgg Core.
//
// Users, incubations, sensor readings, actuator state and alerts all live in
// one SQLite file opened in WAL mode with foreign keys enforced. Migrations
// are plain SQL files compiled into the binary (see the migrations package)
// and applied in version order, one transaction each.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
