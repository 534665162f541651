package datapoint

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// pruneRepo counts PruneHistory calls.
type pruneRepo struct {
	Repository
	calls atomic.Int32
	err   error
}

func (r *pruneRepo) PruneHistory(context.Context, time.Duration) (int64, error) {
	r.calls.Add(1)
	return 3, r.err
}

func TestHistoryPruner_PruneNow(t *testing.T) {
	repo := &pruneRepo{}
	p := NewHistoryPruner(repo, time.Hour, time.Minute, nil)
	if n := p.PruneNow(context.Background()); n != 3 {
		t.Errorf("PruneNow() = %d, want 3", n)
	}

	repo.err = errors.New("locked")
	if n := p.PruneNow(context.Background()); n != 0 {
		t.Errorf("PruneNow() on error = %d, want 0", n)
	}
}

func TestHistoryPruner_RunStopsOnCancel(t *testing.T) {
	repo := &pruneRepo{}
	p := NewHistoryPruner(repo, time.Hour, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if repo.calls.Load() < 2 {
		t.Errorf("PruneHistory calls = %d, want at least 2", repo.calls.Load())
	}
}

func TestHistoryPruner_DisabledRetention(t *testing.T) {
	repo := &pruneRepo{}
	NewHistoryPruner(repo, 0, 0, nil).Run(context.Background())
	if repo.calls.Load() != 0 {
		t.Errorf("PruneHistory calls = %d, want 0", repo.calls.Load())
	}
}
