package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
)

// TestOpen verifies database connection establishment.
func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(context.Background(), config.DatabaseConfig{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
	})

	t.Run("creates directory if not exists", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

		db, err := Open(context.Background(), config.DatabaseConfig{Path: dbPath, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
			t.Error("database directory was not created")
		}
	})

	t.Run("in memory", func(t *testing.T) {
		db := openTestDB(t)
		if db.Path() != MemoryPath {
			t.Errorf("Path() = %v, want %v", db.Path(), MemoryPath)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := Open(context.Background(), config.DatabaseConfig{}); err == nil {
			t.Error("Open() expected error for empty path")
		}
	})
}

func TestConnectionString(t *testing.T) {
	wal := connectionString(config.DatabaseConfig{Path: "/data/homio.db", WALMode: true, BusyTimeout: 5}, false)
	want := "file:/data/homio.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL"
	if wal != want {
		t.Errorf("connectionString() = %q, want %q", wal, want)
	}

	mem := connectionString(config.DatabaseConfig{Path: MemoryPath, WALMode: true}, true)
	if mem != "file::memory:?_busy_timeout=0&_foreign_keys=on" {
		t.Errorf("connectionString(memory) = %q", mem)
	}
}

// TestHealthCheck verifies the health check functionality.
func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

// TestClose verifies graceful shutdown.
func TestClose(t *testing.T) {
	db, err := Open(context.Background(), config.DatabaseConfig{Path: MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

// TestInTx verifies commit on success and rollback on error.
func TestInTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE tx_test (id INTEGER PRIMARY KEY, value TEXT)"); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	insert := func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO tx_test (value) VALUES ('x')")
		return err
	}
	if err := db.InTx(ctx, insert); err != nil {
		t.Fatalf("InTx() error = %v", err)
	}

	errBoom := errors.New("boom")
	err := db.InTx(ctx, func(tx *sql.Tx) error {
		if err := insert(tx); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("InTx() error = %v, want errBoom", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tx_test").Scan(&count); err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 committed row, got %d", count)
	}
}

// TestStats verifies the single-writer pool.
func TestStats(t *testing.T) {
	db := openTestDB(t)

	if stats := db.Stats(); stats.MaxOpenConnections != 1 {
		t.Errorf("MaxOpenConnections = %v, want 1 (SQLite single writer)", stats.MaxOpenConnections)
	}
}

// openTestDB opens an in-memory database closed at test cleanup.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), config.DatabaseConfig{Path: MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	return db
}
