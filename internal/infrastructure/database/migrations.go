package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// Sentinel errors for the migration runner.
var (
	// ErrInvalidMigrations is returned when the registered files do not form
	// a consistent set (a down file without an up file, duplicate versions).
	ErrInvalidMigrations = errors.New("database: invalid migration set")

	// ErrMigrationModified is returned when an applied migration's up SQL no
	// longer matches the checksum recorded when it ran.
	ErrMigrationModified = errors.New("database: applied migration was modified")
)

var (
	migrationsFS  fs.FS
	migrationsDir = "."
)

// RegisterMigrations sets the filesystem and directory migrations are
// loaded from. The migrations package calls it from init with its embedded
// SQL files; tests may pass an fstest.MapFS.
//
// A nil fsys disables migrations.
func RegisterMigrations(fsys fs.FS, dir string) {
	migrationsFS = fsys
	if dir == "" {
		dir = "."
	}
	migrationsDir = dir
}

// Migration is one schema change loaded from a pair of SQL files named
// {YYYYMMDD}_{HHMMSS}_{name}.up.sql and .down.sql.
type Migration struct {
	Version string // YYYYMMDD_HHMMSS
	Name    string // e.g. "datapoint_values"
	UpSQL   string
	DownSQL string // empty when the migration is irreversible
}

// Checksum identifies the up SQL. It is recorded when the migration is
// applied and verified on every later run.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpSQL))
	return hex.EncodeToString(sum[:])
}

// MigrationRecord is a row of the schema_migrations table.
type MigrationRecord struct {
	Version   string
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// Migrate applies all pending migrations in version order.
//
// Each migration runs in its own transaction. If migration N fails,
// migrations before it stay committed, N is rolled back and later ones are
// not attempted; re-running Migrate continues from N.
//
// Before anything is applied, every already-applied migration is checked
// against its recorded checksum so an edited file is caught instead of
// silently diverging from the live schema.
//
// Returns:
//   - error: ErrInvalidMigrations, ErrMigrationModified, or the failure of
//     the migration that was rolled back
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	if err := verifyChecksums(applied, migrations); err != nil {
		return err
	}

	for _, m := range pendingMigrations(applied, migrations) {
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration. It is meant
// for development; production schemas only move forward.
func (db *DB) MigrateDown(ctx context.Context) error {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	latest := applied[len(applied)-1]

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	idx := sort.Search(len(migrations), func(i int) bool { return migrations[i].Version >= latest.Version })
	if idx == len(migrations) || migrations[idx].Version != latest.Version {
		return fmt.Errorf("migration %s not found in filesystem", latest.Version)
	}
	m := migrations[idx]
	if m.DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", m.Version)
	}

	return db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			return fmt.Errorf("executing down SQL: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", m.Version); err != nil {
			return fmt.Errorf("removing migration record: %w", err)
		}
		return nil
	})
}

// MigrationStatus reports applied migrations (oldest first) and the ones
// still pending. The schema_migrations table must exist.
func (db *DB) MigrationStatus(ctx context.Context) (applied []MigrationRecord, pending []Migration, err error) {
	applied, err = db.appliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	migrations, err := loadMigrations()
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations: %w", err)
	}
	return applied, pendingMigrations(applied, migrations), nil
}

func pendingMigrations(applied []MigrationRecord, migrations []Migration) []Migration {
	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		done[r.Version] = true
	}
	var pending []Migration
	for _, m := range migrations {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// verifyChecksums compares recorded checksums with the registered files.
// Rows whose file has been removed are left alone.
func verifyChecksums(applied []MigrationRecord, migrations []Migration) error {
	byVersion := make(map[string]Migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}
	for _, r := range applied {
		m, ok := byVersion[r.Version]
		if !ok {
			continue
		}
		if m.Checksum() != r.Checksum {
			return fmt.Errorf("%w: %s (%s)", ErrMigrationModified, r.Version, r.Name)
		}
	}
	return nil
}

func (db *DB) createMigrationsTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at TEXT NOT NULL
		) STRICT
	`)
	return err
}

// appliedMigrations returns the schema_migrations rows, oldest first.
func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT version, name, checksum, applied_at FROM schema_migrations ORDER BY version",
	)
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var (
			r         MigrationRecord
			appliedAt string
		)
		if err := rows.Scan(&r.Version, &r.Name, &r.Checksum, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt) //nolint:errcheck // written by applyMigration
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return records, nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	return db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("executing SQL: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)",
			m.Version, m.Name, m.Checksum(), time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("recording migration: %w", err)
		}
		return nil
	})
}

// loadMigrations reads the registered directory and returns the migrations
// sorted by version. Files that do not follow the naming scheme are ignored.
func loadMigrations() ([]Migration, error) {
	if migrationsFS == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %q: %w", migrationsDir, err)
	}

	byVersion := make(map[string]*Migration)
	downs := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, ok := parseMigrationFilename(entry.Name())
		if !ok {
			continue
		}

		data, err := fs.ReadFile(migrationsFS, path.Join(migrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		if !f.up {
			downs[f.version] = string(data)
			continue
		}
		if prev, dup := byVersion[f.version]; dup {
			return nil, fmt.Errorf("%w: version %s used by %s and %s", ErrInvalidMigrations, f.version, prev.Name, f.name)
		}
		byVersion[f.version] = &Migration{Version: f.version, Name: f.name, UpSQL: string(data)}
	}

	for version, sql := range downs {
		m, ok := byVersion[version]
		if !ok {
			return nil, fmt.Errorf("%w: down migration %s has no up migration", ErrInvalidMigrations, version)
		}
		m.DownSQL = sql
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// migrationFile is a parsed migration filename.
type migrationFile struct {
	version string
	name    string
	up      bool
}

// parseMigrationFilename parses {YYYYMMDD}_{HHMMSS}_{name}.{up|down}.sql.
// The name part is optional.
func parseMigrationFilename(filename string) (migrationFile, bool) {
	base, ok := strings.CutSuffix(filename, ".sql")
	if !ok {
		return migrationFile{}, false
	}

	var f migrationFile
	switch {
	case strings.HasSuffix(base, ".up"):
		f.up = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		base = strings.TrimSuffix(base, ".down")
	default:
		return migrationFile{}, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 2 || !isDigits(parts[0], 8) || !isDigits(parts[1], 6) {
		return migrationFile{}, false
	}
	f.version = parts[0] + "_" + parts[1]
	f.name = f.version
	if len(parts) == 3 && parts[2] != "" {
		f.name = parts[2]
	}
	return f, true
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
