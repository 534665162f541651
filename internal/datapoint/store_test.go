package datapoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/homio-core/internal/state"
)

func TestStore_Update(t *testing.T) {
	s := NewStore()

	tr := s.Update("temp", state.DecimalFromInt(20))
	if !tr.First() || !tr.Changed() {
		t.Errorf("first Update() = %+v, want first and changed", tr)
	}

	tr = s.Update("temp", state.DecimalFromFloat(20))
	if tr.Changed() {
		t.Error("Update() with numerically equal value reported a change")
	}

	tr = s.Update("temp", state.DecimalFromInt(21))
	if !tr.Changed() || tr.Previous.String() != "20.0" {
		t.Errorf("Update() = %+v, want change from 20.0", tr)
	}

	sample, ok := s.Get("temp")
	if !ok || sample.Value.String() != "21" || sample.DatapointID != "temp" {
		t.Errorf("Get() = %+v, %v", sample, ok)
	}
	if sample.Timestamp.IsZero() || sample.Timestamp.Location() != time.UTC {
		t.Errorf("Get() timestamp = %v, want UTC", sample.Timestamp)
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) ok = true")
	}
}

func TestStore_SnapshotOrdered(t *testing.T) {
	s := NewStore()
	s.Update("c", state.On)
	s.Update("a", state.Off)
	s.Update("b", state.NewString("x"))

	snap := s.Snapshot()
	if len(snap) != 3 || s.Len() != 3 {
		t.Fatalf("Snapshot() len = %d, Len() = %d", len(snap), s.Len())
	}
	for i, want := range []string{"a", "b", "c"} {
		if snap[i].DatapointID != want {
			t.Errorf("Snapshot()[%d] = %s, want %s", i, snap[i].DatapointID, want)
		}
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Update("counter", state.DecimalFromInt(int64(i)))
			s.Get("counter")
			s.Snapshot()
		}(i)
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

// listRepo is a Repository stub returning fixed latest values.
type listRepo struct {
	Repository
	samples []Sample
	err     error
}

func (r listRepo) ListLatest(context.Context) ([]Sample, error) {
	return r.samples, r.err
}

func TestStore_Load(t *testing.T) {
	s := NewStore()
	s.Update("stale", state.On)

	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	repo := listRepo{samples: []Sample{
		{DatapointID: "temp", Value: state.DecimalFromInt(19), Timestamp: at},
	}}
	if err := s.Load(context.Background(), repo); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, ok := s.Get("stale"); ok {
		t.Error("Load() kept a value missing from the repository")
	}
	sample, ok := s.Get("temp")
	if !ok || !sample.Timestamp.Equal(at) {
		t.Errorf("Get(temp) = %+v, %v", sample, ok)
	}

	// Next reading is compared against the loaded value.
	if tr := s.Update("temp", state.DecimalFromInt(19)); tr.Changed() {
		t.Error("Update() after Load() reported a change for the persisted value")
	}

	boom := errors.New("boom")
	if err := s.Load(context.Background(), listRepo{err: boom}); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want wrapped boom", err)
	}
}
