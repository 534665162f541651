package datapoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/homio-core/internal/state"
)

// Sample is a value of a datapoint at a point in time.
type Sample struct {
	DatapointID string
	Value       state.Value
	Timestamp   time.Time
}

// Store is the in-memory cache of last known values.
//
// Values are immutable, so Get and Snapshot hand out the cached values
// without copying. All methods are thread-safe.
type Store struct {
	mu      sync.RWMutex
	samples map[string]Sample
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		samples: make(map[string]Sample),
		now:     time.Now,
	}
}

// Update stores v as the current value of id and returns the transition
// from the value it replaced. The timestamp is refreshed even when the
// value is unchanged.
func (s *Store) Update(id string, v state.Value) state.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.samples[id]
	s.samples[id] = Sample{DatapointID: id, Value: v, Timestamp: s.now().UTC()}
	return state.Transition{Current: v, Previous: prev.Value}
}

// Get returns the last known sample of id.
func (s *Store) Get(id string) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample, ok := s.samples[id]
	return sample, ok
}

// Snapshot returns every sample ordered by datapoint ID.
func (s *Store) Snapshot() []Sample {
	s.mu.RLock()
	out := make([]Sample, 0, len(s.samples))
	for _, sample := range s.samples {
		out = append(out, sample)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DatapointID < out[j].DatapointID })
	return out
}

// Len returns the number of datapoints holding a value.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Load replaces the cache with the latest values persisted in repo.
// This should be called on application startup.
func (s *Store) Load(ctx context.Context, repo Repository) error {
	samples, err := repo.ListLatest(ctx)
	if err != nil {
		return fmt.Errorf("loading latest values: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = make(map[string]Sample, len(samples))
	for _, sample := range samples {
		s.samples[sample.DatapointID] = sample
	}
	return nil
}
