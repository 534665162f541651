package datapoint

import (
	"context"
	"time"
)

// HistoryPruner periodically removes expired value history.
type HistoryPruner struct {
	repo      Repository
	retention time.Duration
	interval  time.Duration
	logger    Logger
}

// NewHistoryPruner creates a pruner. A zero retention disables pruning.
func NewHistoryPruner(repo Repository, retention, interval time.Duration, logger Logger) *HistoryPruner {
	if logger == nil {
		logger = noopLogger{}
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &HistoryPruner{repo: repo, retention: retention, interval: interval, logger: logger}
}

// Run prunes once immediately and then every interval until ctx is done.
func (p *HistoryPruner) Run(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("history pruning disabled")
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PruneNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneNow(ctx)
		}
	}
}

// PruneNow runs a single prune pass and returns the rows removed.
func (p *HistoryPruner) PruneNow(ctx context.Context) int64 {
	n, err := p.repo.PruneHistory(ctx, p.retention)
	if err != nil {
		p.logger.Error("pruning value history failed", "error", err)
		return 0
	}
	if n > 0 {
		p.logger.Info("pruned value history", "rows", n)
	}
	return n
}
