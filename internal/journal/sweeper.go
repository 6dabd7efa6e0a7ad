package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/formstage/internal/form"
)

// Store is the part of the journal the sweeper needs.
type Store interface {
	Expired(ctx context.Context, before time.Time, limit int) ([]form.FileRecord, error)
	Forget(ctx context.Context, paths []string) (int64, error)
}

// SweeperConfig holds retention settings. Zero values fall back to the
// package defaults.
type SweeperConfig struct {
	TTL       time.Duration // default: 24h
	Interval  time.Duration // default: 1h
	BatchSize int           // default: 500
}

// Sweeper removes staged files whose journal rows are older than the TTL.
type Sweeper struct {
	store    Store
	cfg      SweeperConfig
	logger   *slog.Logger
	observer form.Observer
	now      func() time.Time
}

// NewSweeper returns a Sweeper over store. observer, when non-nil, is told
// about every removed file.
func NewSweeper(store Store, cfg SweeperConfig, logger *slog.Logger, observer form.Observer) *Sweeper {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = form.NopObserver{}
	}
	return &Sweeper{store: store, cfg: cfg, logger: logger, observer: observer, now: time.Now}
}

// Run sweeps immediately, then every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("journal sweeper started",
		"ttl", s.cfg.TTL,
		"interval", s.cfg.Interval,
		"batch_size", s.cfg.BatchSize,
	)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("journal sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	start := time.Now()
	removed, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("journal sweep failed", "removed", removed, "error", err)
		return
	}
	s.logger.Info("journal sweep completed",
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Sweep removes every expired file in batches and forgets the rows of the
// files that are gone. Files that cannot be removed keep their rows and are
// retried on the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.TTL)
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		recs, err := s.store.Expired(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		if len(recs) == 0 {
			return total, nil
		}

		gone := &removedPaths{next: s.observer}
		form.RemoveFiles(ctx, s.logger, gone, recs)

		if _, err := s.store.Forget(ctx, gone.paths); err != nil {
			return total, fmt.Errorf("forget swept files: %w", err)
		}
		total += len(gone.paths)

		// A short batch is the last one; a batch with failures would be
		// returned again unchanged.
		if len(recs) < s.cfg.BatchSize || len(gone.paths) < len(recs) {
			return total, nil
		}
	}
}

// removedPaths collects removed paths and forwards every notification.
type removedPaths struct {
	next form.Observer

	mu    sync.Mutex
	paths []string
}

func (r *removedPaths) PartRead(ctx context.Context, c form.Class) { r.next.PartRead(ctx, c) }

func (r *removedPaths) FileStored(ctx context.Context, rec form.FileRecord) {
	r.next.FileStored(ctx, rec)
}

func (r *removedPaths) FileRemoved(ctx context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.next.FileRemoved(ctx, path)
}

func (r *removedPaths) Failed(ctx context.Context, err error) { r.next.Failed(ctx, err) }
