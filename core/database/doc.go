// Package database handles database connections and schema inspection.
//
// It wraps GORM to open the catalog database for the configured driver: MySQL in
// production, SQLite for single-node deployments and tests. Connections are opened with
// TranslateError so unique-key violations surface as gorm.ErrDuplicatedKey regardless
// of driver, which the reconciliation engine relies on to detect create races.
//
// # Schema Inspection
//
// GetTableColumns and VerifySchema back the `check` command, which confirms that the
// events table carries the columns and indexes the matcher depends on.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	report, err := database.VerifySchema(db, "events", columns, indexes)
package database
