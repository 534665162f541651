package datapoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/homio-core/internal/state"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// timestampLayout is fixed width so stored timestamps sort lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteRepository implements Repository using SQLite.
//
// Values are stored through the state codec: a kind tag, a content type
// and the encoded payload.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite datapoint repository.
//
// Parameters:
//   - db: Open SQLite connection with migrations applied
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveLatest inserts or replaces the latest value of a datapoint.
func (r *SQLiteRepository) SaveLatest(ctx context.Context, s Sample) error {
	rec, err := encodeSample(s)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO datapoint_values (datapoint_id, kind, content_type, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(datapoint_id) DO UPDATE SET
		   kind = excluded.kind,
		   content_type = excluded.content_type,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		s.DatapointID, string(rec.Kind), rec.ContentType, rec.Payload, formatTimestamp(s.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("saving latest value: %w", err)
	}
	return nil
}

// GetLatest returns the latest value of id.
func (r *SQLiteRepository) GetLatest(ctx context.Context, id string) (Sample, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT datapoint_id, kind, content_type, payload, updated_at
		 FROM datapoint_values WHERE datapoint_id = ?`, id)

	s, err := scanSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Sample{}, ErrDatapointNotFound
	}
	if err != nil {
		return Sample{}, fmt.Errorf("querying latest value: %w", err)
	}
	return s, nil
}

// ListLatest returns the latest value of every datapoint ordered by ID.
func (r *SQLiteRepository) ListLatest(ctx context.Context) ([]Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT datapoint_id, kind, content_type, payload, updated_at
		 FROM datapoint_values ORDER BY datapoint_id`)
	if err != nil {
		return nil, fmt.Errorf("querying latest values: %w", err)
	}
	defer rows.Close()

	return collectSamples(rows)
}

// RecordHistory appends s to the value history.
func (r *SQLiteRepository) RecordHistory(ctx context.Context, s Sample) error {
	rec, err := encodeSample(s)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO value_history (datapoint_id, kind, content_type, payload, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.DatapointID, string(rec.Kind), rec.ContentType, rec.Payload, formatTimestamp(s.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting value history: %w", err)
	}
	return nil
}

// GetHistory returns recent history of id, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - id: Datapoint identifier
//   - limit: Maximum entries to return (default 50, max 200)
func (r *SQLiteRepository) GetHistory(ctx context.Context, id string, limit int) ([]Sample, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidDatapoint)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT datapoint_id, kind, content_type, payload, recorded_at
		 FROM value_history
		 WHERE datapoint_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying value history: %w", err)
	}
	defer rows.Close()

	return collectSamples(rows)
}

// PruneHistory deletes history entries older than the given duration.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := formatTimestamp(time.Now().Add(-olderThan))
	result, err := r.db.ExecContext(ctx, "DELETE FROM value_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting value history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (Sample, error) {
	var (
		s         Sample
		kind      string
		rec       state.Record
		timestamp string
	)
	if err := row.Scan(&s.DatapointID, &kind, &rec.ContentType, &rec.Payload, &timestamp); err != nil {
		return Sample{}, err
	}
	rec.Kind = state.Kind(kind)

	v, err := state.Decode(rec)
	if err != nil {
		return Sample{}, fmt.Errorf("decoding value of %s: %w", s.DatapointID, err)
	}
	s.Value = v

	ts, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return Sample{}, fmt.Errorf("parsing timestamp of %s: %w", s.DatapointID, err)
	}
	s.Timestamp = ts
	return s, nil
}

func collectSamples(rows *sql.Rows) ([]Sample, error) {
	var samples []Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples: %w", err)
	}
	return samples, nil
}

// encodeSample validates s and encodes its value.
func encodeSample(s Sample) (state.Record, error) {
	if s.DatapointID == "" {
		return state.Record{}, fmt.Errorf("%w: id is required", ErrInvalidDatapoint)
	}
	rec, err := state.Encode(s.Value)
	if err != nil {
		return state.Record{}, fmt.Errorf("encoding value of %s: %w", s.DatapointID, err)
	}
	// payload is NOT NULL; the driver binds a nil slice as NULL.
	if rec.Payload == nil {
		rec.Payload = []byte{}
	}
	return rec, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timestampLayout)
}
