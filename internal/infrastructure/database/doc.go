// Package database opens the SQLite file holding latest datapoint values
// and their history, and applies schema migrations.
//
// The pool is limited to one connection (SQLite has a single writer); WAL
// mode lets readers proceed during writes. ":memory:" (MemoryPath) opens a
// private in-memory database for tests.
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are registered by the migrations package from embedded SQL
// files named {YYYYMMDD}_{HHMMSS}_{name}.up.sql with an optional .down.sql.
// Schema changes are additive: new columns are NULLABLE or carry a
// DEFAULT. Applied migrations are checksummed, so editing one after
// release makes Migrate fail with ErrMigrationModified.
package database
