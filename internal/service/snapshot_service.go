package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// Upstream reads the two backend endpoints. orbsapi.Client satisfies it.
type Upstream interface {
	FetchOdds(ctx context.Context) (domain.OddsSnapshot, error)
	FetchArbitrage(ctx context.Context) (domain.ArbitrageSnapshot, error)
}

// SnapshotConfig tunes the snapshot service.
type SnapshotConfig struct {
	// Timeout bounds each upstream read.
	Timeout time.Duration
	// Revalidate is how long a fresh snapshot may be served from the cache.
	// Zero disables the cache.
	Revalidate time.Duration
	// SinkTimeout bounds one round of sinks.
	SinkTimeout time.Duration
	// BaseURL is reported in the status for operators.
	BaseURL string
}

// Snapshots is the pair of reads a render works from.
type Snapshots struct {
	Odds      domain.OddsSnapshot
	Arbitrage domain.ArbitrageSnapshot
}

// EndpointStatus is the recent outcome of reads against one endpoint.
type EndpointStatus struct {
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Healthy reports whether the most recent read succeeded, or none failed yet.
func (e EndpointStatus) Healthy() bool {
	return e.ConsecutiveFailures == 0
}

// UpstreamStatus is what /api/health reports about the backend.
type UpstreamStatus struct {
	BaseURL   string         `json:"base_url"`
	Odds      EndpointStatus `json:"odds"`
	Arbitrage EndpointStatus `json:"arbitrage"`
}

// SnapshotService resolves odds and arbitrage snapshots for rendering. Reads
// never fail from the caller's point of view: any upstream error becomes an
// empty snapshot stamped with the failure time, and is logged.
type SnapshotService struct {
	upstream Upstream
	cache    domain.SnapshotCache
	sinks    []Sink
	cfg      SnapshotConfig
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	status UpstreamStatus

	inflight sync.WaitGroup
}

// NewSnapshotService creates a SnapshotService. cache may be nil.
func NewSnapshotService(
	upstream Upstream,
	cache domain.SnapshotCache,
	sinks []Sink,
	cfg SnapshotConfig,
	logger *slog.Logger,
) *SnapshotService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 30 * time.Second
	}
	return &SnapshotService{
		upstream: upstream,
		cache:    cache,
		sinks:    sinks,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "snapshot_service")),
		now:      time.Now,
		status:   UpstreamStatus{BaseURL: cfg.BaseURL},
	}
}

// Load returns both snapshots, reading them concurrently. Inside the
// revalidation window cached snapshots are served. Sinks for freshly fetched
// data run in the background so the render is never held up by them.
func (s *SnapshotService) Load(ctx context.Context) Snapshots {
	snaps, ev := s.fetch(ctx, true)
	if ev.touchedUpstream() {
		s.dispatchAsync(ctx, ev)
	}
	return snaps
}

// Refresh bypasses the cache, fetches both snapshots, and runs the sinks
// before returning.
func (s *SnapshotService) Refresh(ctx context.Context) Snapshots {
	snaps, ev := s.fetch(ctx, false)
	s.dispatch(ctx, ev)
	return snaps
}

// Status returns a copy of the upstream read status.
func (s *SnapshotService) Status() UpstreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Wait blocks until background sink rounds started by Load have finished.
func (s *SnapshotService) Wait() {
	s.inflight.Wait()
}

func (s *SnapshotService) fetch(ctx context.Context, useCache bool) (Snapshots, Refresh) {
	var (
		snaps Snapshots
		ev    = Refresh{At: s.now()}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snaps.Odds, ev.OddsFetched, ev.OddsErr = s.loadOdds(gctx, useCache)
		return nil
	})
	g.Go(func() error {
		snaps.Arbitrage, ev.ArbitrageFetched, ev.ArbitrageErr = s.loadArbitrage(gctx, useCache)
		return nil
	})
	_ = g.Wait()

	ev.Odds = snaps.Odds
	ev.Arbitrage = snaps.Arbitrage
	return snaps, ev
}

// loadOdds returns the snapshot to render, whether it came fresh from the
// upstream, and the upstream error if the read failed.
func (s *SnapshotService) loadOdds(ctx context.Context, useCache bool) (domain.OddsSnapshot, bool, error) {
	if useCache && s.cacheEnabled() {
		snap, err := s.cache.GetOdds(ctx)
		if err == nil {
			return snap, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "snapshot cache read failed",
				slog.String("kind", "odds"),
				slog.String("error", err.Error()),
			)
		}
	}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	snap, err := s.upstream.FetchOdds(fctx)
	if err != nil && ctx.Err() != nil {
		s.abandoned(ctx, "odds")
		return domain.EmptyOddsSnapshot(s.now()), false, nil
	}
	if err != nil {
		s.recordFailure(&s.status.Odds, err)
		s.logger.WarnContext(ctx, "odds fetch failed",
			slog.String("error", err.Error()),
			slog.String("kind", ErrorKind(err)),
		)
		return domain.EmptyOddsSnapshot(s.now()), false, err
	}
	if snap.NBA == nil {
		snap.NBA = []domain.Game{}
	}
	if snap.NFL == nil {
		snap.NFL = []domain.Game{}
	}
	s.recordSuccess(&s.status.Odds)

	if s.cacheEnabled() {
		if err := s.cache.SetOdds(ctx, snap, s.cfg.Revalidate); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache write failed",
				slog.String("kind", "odds"),
				slog.String("error", err.Error()),
			)
		}
	}
	return snap, true, nil
}

func (s *SnapshotService) loadArbitrage(ctx context.Context, useCache bool) (domain.ArbitrageSnapshot, bool, error) {
	if useCache && s.cacheEnabled() {
		snap, err := s.cache.GetArbitrage(ctx)
		if err == nil {
			return snap, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "snapshot cache read failed",
				slog.String("kind", "arbitrage"),
				slog.String("error", err.Error()),
			)
		}
	}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	snap, err := s.upstream.FetchArbitrage(fctx)
	if err != nil && ctx.Err() != nil {
		s.abandoned(ctx, "arbitrage")
		return domain.EmptyArbitrageSnapshot(s.now()), false, nil
	}
	if err != nil {
		s.recordFailure(&s.status.Arbitrage, err)
		s.logger.WarnContext(ctx, "arbitrage fetch failed",
			slog.String("error", err.Error()),
			slog.String("kind", ErrorKind(err)),
		)
		return domain.EmptyArbitrageSnapshot(s.now()), false, err
	}
	if snap.Opportunities == nil {
		snap.Opportunities = []domain.ArbitrageOpportunity{}
	}
	s.recordSuccess(&s.status.Arbitrage)

	if s.cacheEnabled() {
		if err := s.cache.SetArbitrage(ctx, snap, s.cfg.Revalidate); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache write failed",
				slog.String("kind", "arbitrage"),
				slog.String("error", err.Error()),
			)
		}
	}
	return snap, true, nil
}

// abandoned logs a read cut short because the caller went away. It says
// nothing about the upstream, so endpoint status and sinks are left alone.
func (s *SnapshotService) abandoned(ctx context.Context, kind string) {
	s.logger.DebugContext(ctx, "upstream read abandoned by caller",
		slog.String("kind", kind),
		slog.String("reason", context.Cause(ctx).Error()),
	)
}

func (s *SnapshotService) cacheEnabled() bool {
	return s.cache != nil && s.cfg.Revalidate > 0
}

func (s *SnapshotService) recordSuccess(st *EndpointStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.LastSuccess = s.now()
	st.ConsecutiveFailures = 0
}

func (s *SnapshotService) recordFailure(st *EndpointStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.LastFailure = s.now()
	st.LastError = err.Error()
	st.ConsecutiveFailures++
}

func (s *SnapshotService) dispatchAsync(ctx context.Context, ev Refresh) {
	if len(s.sinks) == 0 {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.dispatch(context.WithoutCancel(ctx), ev)
	}()
}

// dispatch runs every sink in order. Sink errors are logged only.
func (s *SnapshotService) dispatch(ctx context.Context, ev Refresh) {
	if len(s.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SinkTimeout)
	defer cancel()

	for _, sink := range s.sinks {
		if err := sink.Consume(ctx, ev); err != nil {
			s.logger.ErrorContext(ctx, "sink failed",
				slog.String("sink", sink.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ErrorKind classifies an upstream error for logs and audit entries.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrUpstreamStatus):
		return "status"
	case errors.Is(err, domain.ErrUpstreamMalformed):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
