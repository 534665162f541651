package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout bounds the initial ping.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute

	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"
)

// DB wraps a sql.DB connection with migration support, health checks and
// lifecycle management.
type DB struct {
	*sql.DB
	path string
}

// Open creates a new database connection with the specified configuration.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures WAL mode, busy timeout and foreign keys
//  4. Verifies the connection with a ping bounded by ctx
//  5. Restricts file permissions to 0600
//
// A Path of MemoryPath opens an in-memory database; WAL mode and file
// handling are skipped for it.
//
// Parameters:
//   - ctx: Context for the connection check
//   - cfg: Database section of config.yaml
//
// Returns:
//   - *DB: Connected database wrapper
//   - error: If connection or configuration fails
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	inMemory := cfg.Path == MemoryPath

	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", connectionString(cfg, inMemory))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite supports a single writer. One connection also keeps an
	// in-memory database alive for the lifetime of the pool.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if !inMemory {
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	}

	db := &DB{
		DB:   sqlDB,
		path: cfg.Path,
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if !inMemory {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // File may not exist until first write
	}

	return db, nil
}

// connectionString builds the go-sqlite3 DSN with pragmas.
// See: https://github.com/mattn/go-sqlite3#connection-string
func connectionString(cfg config.DatabaseConfig, inMemory bool) string {
	busy := cfg.BusyTimeout * msPerSecond
	if inMemory {
		return fmt.Sprintf("file::memory:?_busy_timeout=%d&_foreign_keys=on", busy)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, busy)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return connStr
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the database is accessible and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise; fn's error is returned unchanged.
func (db *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck // fn's error is the one worth reporting
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
