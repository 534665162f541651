package datapoint

import (
	"context"
	"time"
)

// Repository persists latest values and value history.
type Repository interface {
	// SaveLatest inserts or replaces the latest value of a datapoint.
	SaveLatest(ctx context.Context, s Sample) error

	// GetLatest returns the latest value of id.
	// Returns ErrDatapointNotFound if none is stored.
	GetLatest(ctx context.Context, id string) (Sample, error)

	// ListLatest returns the latest value of every datapoint.
	ListLatest(ctx context.Context) ([]Sample, error)

	// RecordHistory appends s to the value history.
	RecordHistory(ctx context.Context, s Sample) error

	// GetHistory returns recent history of id, newest first.
	GetHistory(ctx context.Context, id string, limit int) ([]Sample, error)

	// PruneHistory deletes history older than olderThan and returns the
	// number of rows removed.
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}
