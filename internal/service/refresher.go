package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

const refreshLockKey = "refresh"

// Refreshable is the part of SnapshotService the Refresher drives.
type Refreshable interface {
	Refresh(ctx context.Context) Snapshots
}

// Refresher polls the upstream on a fixed interval so sinks see every change
// even when nobody is looking at the dashboard. With a LockManager only one
// replica polls per interval.
type Refresher struct {
	svc      Refreshable
	locks    domain.LockManager
	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a Refresher. locks may be nil.
func NewRefresher(svc Refreshable, locks domain.LockManager, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		svc:      svc,
		locks:    locks,
		interval: interval,
		logger:   logger.With(slog.String("component", "refresher")),
	}
}

// Run polls until ctx is cancelled. A non-positive interval disables polling
// and Run just waits for ctx.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.InfoContext(ctx, "background refresh disabled")
		<-ctx.Done()
		return nil
	}

	r.logger.InfoContext(ctx, "background refresh started", slog.Duration("interval", r.interval))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	if r.locks != nil {
		// The lock is left to expire so other replicas skip the rest of
		// this interval.
		_, err := r.locks.Acquire(ctx, refreshLockKey, r.lockTTL())
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			r.logger.DebugContext(ctx, "refresh skipped, another replica holds the lock")
			return
		case err != nil:
			r.logger.WarnContext(ctx, "refresh lock unavailable, refreshing anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	start := time.Now()
	snaps := r.svc.Refresh(ctx)
	r.logger.DebugContext(ctx, "refresh complete",
		slog.Int("games", snaps.Odds.TotalGames),
		slog.Int("opportunities", len(snaps.Arbitrage.Opportunities)),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func (r *Refresher) lockTTL() time.Duration {
	ttl := r.interval * 9 / 10
	if ttl < time.Second {
		ttl = r.interval
	}
	return ttl
}
