package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/alanyoungcy/orbstracker/internal/notify"
)

// Refresh is the outcome of one round of upstream reads, handed to every sink.
type Refresh struct {
	At        time.Time
	Odds      domain.OddsSnapshot
	Arbitrage domain.ArbitrageSnapshot

	// OddsFetched and ArbitrageFetched are true when the snapshot came
	// straight from the upstream rather than the cache or a fallback.
	OddsFetched      bool
	ArbitrageFetched bool

	OddsErr      error
	ArbitrageErr error
}

func (r Refresh) touchedUpstream() bool {
	return r.OddsFetched || r.ArbitrageFetched || r.OddsErr != nil || r.ArbitrageErr != nil
}

// Sink consumes refresh results after they are served.
type Sink interface {
	Name() string
	Consume(ctx context.Context, r Refresh) error
}

// Archiver persists raw snapshots. s3blob.SnapshotArchiver satisfies it.
type Archiver interface {
	ArchiveOdds(ctx context.Context, snap domain.OddsSnapshot, at time.Time) (string, error)
	ArchiveArbitrage(ctx context.Context, snap domain.ArbitrageSnapshot, at time.Time) (string, error)
}

// AlertNotifier delivers alerts. notify.Notifier satisfies it.
type AlertNotifier interface {
	Notify(ctx context.Context, alert notify.Alert) error
}

// Publisher pushes a payload to dashboard clients, either directly through
// the WebSocket hub or through the cross-replica refresh bus.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// ArchiveSink writes every freshly fetched snapshot to blob storage.
type ArchiveSink struct {
	archiver Archiver
	logger   *slog.Logger
}

// NewArchiveSink creates an ArchiveSink.
func NewArchiveSink(archiver Archiver, logger *slog.Logger) *ArchiveSink {
	return &ArchiveSink{
		archiver: archiver,
		logger:   logger.With(slog.String("component", "archive_sink")),
	}
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) Consume(ctx context.Context, r Refresh) error {
	var errs []error
	if r.OddsFetched {
		path, err := s.archiver.ArchiveOdds(ctx, r.Odds, r.At)
		if err != nil {
			errs = append(errs, err)
		} else {
			s.logger.DebugContext(ctx, "odds archived", slog.String("path", path))
		}
	}
	if r.ArbitrageFetched {
		path, err := s.archiver.ArchiveArbitrage(ctx, r.Arbitrage, r.At)
		if err != nil {
			errs = append(errs, err)
		} else {
			s.logger.DebugContext(ctx, "arbitrage archived", slog.String("path", path))
		}
	}
	return errors.Join(errs...)
}

// SightingSink records every fetched opportunity and alerts on the ones not
// seen before. It also alerts once when an endpoint starts failing.
type SightingSink struct {
	store    domain.SightingStore
	notifier AlertNotifier
	logger   *slog.Logger

	mu      sync.Mutex
	failing map[string]bool
}

// NewSightingSink creates a SightingSink. notifier may be nil.
func NewSightingSink(store domain.SightingStore, notifier AlertNotifier, logger *slog.Logger) *SightingSink {
	return &SightingSink{
		store:    store,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "sighting_sink")),
		failing:  make(map[string]bool),
	}
}

func (s *SightingSink) Name() string { return "sightings" }

func (s *SightingSink) Consume(ctx context.Context, r Refresh) error {
	var errs []error

	s.upstreamTransition(ctx, "odds", r.OddsFetched, r.OddsErr, &errs)
	s.upstreamTransition(ctx, "arbitrage", r.ArbitrageFetched, r.ArbitrageErr, &errs)

	if !r.ArbitrageFetched {
		return errors.Join(errs...)
	}

	fresh, err := s.store.Record(ctx, r.Arbitrage.Opportunities, r.At)
	if err != nil {
		errs = append(errs, fmt.Errorf("sighting_sink: record: %w", err))
		return errors.Join(errs...)
	}

	for _, opp := range fresh {
		s.logger.InfoContext(ctx, "arbitrage opportunity detected",
			slog.String("game_id", opp.GameID),
			slog.String("home_bookmaker", opp.HomeBookmaker),
			slog.String("away_bookmaker", opp.AwayBookmaker),
			slog.Float64("profit_pct", opp.ProfitPercentage),
		)
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.Notify(ctx, notify.ArbitrageAlert(opp)); err != nil {
			errs = append(errs, fmt.Errorf("sighting_sink: notify: %w", err))
		}
	}
	return errors.Join(errs...)
}

// upstreamTransition alerts when an endpoint goes from healthy to failing.
func (s *SightingSink) upstreamTransition(ctx context.Context, endpoint string, fetched bool, fetchErr error, errs *[]error) {
	s.mu.Lock()
	was := s.failing[endpoint]
	switch {
	case fetchErr != nil:
		s.failing[endpoint] = true
	case fetched:
		s.failing[endpoint] = false
	}
	s.mu.Unlock()

	if fetchErr == nil || was || s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, notify.UpstreamAlert(endpoint, fetchErr)); err != nil {
		*errs = append(*errs, fmt.Errorf("sighting_sink: notify: %w", err))
	}
}

// BroadcastSink tells connected dashboards to reload when the data they show
// has changed.
type BroadcastSink struct {
	publisher Publisher
	logger    *slog.Logger

	mu   sync.Mutex
	last uint64
}

// NewBroadcastSink creates a BroadcastSink.
func NewBroadcastSink(publisher Publisher, logger *slog.Logger) *BroadcastSink {
	return &BroadcastSink{
		publisher: publisher,
		logger:    logger.With(slog.String("component", "broadcast_sink")),
	}
}

func (s *BroadcastSink) Name() string { return "broadcast" }

func (s *BroadcastSink) Consume(ctx context.Context, r Refresh) error {
	if !r.OddsFetched && !r.ArbitrageFetched {
		return nil
	}

	sum, err := fingerprint(r.Odds, r.Arbitrage)
	if err != nil {
		return fmt.Errorf("broadcast_sink: fingerprint: %w", err)
	}
	s.mu.Lock()
	unchanged := sum == s.last
	s.last = sum
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	payload, err := RefreshMessage(r)
	if err != nil {
		return fmt.Errorf("broadcast_sink: marshal: %w", err)
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		return fmt.Errorf("broadcast_sink: publish: %w", err)
	}
	s.logger.DebugContext(ctx, "dashboard refresh published",
		slog.Int("games", r.Odds.TotalGames),
		slog.Int("opportunities", len(r.Arbitrage.Opportunities)),
	)
	return nil
}

// RefreshMessage is the WebSocket payload announcing new data.
func RefreshMessage(r Refresh) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":          "dashboard_refresh",
		"nba_games":     len(r.Odds.NBA),
		"nfl_games":     len(r.Odds.NFL),
		"total_games":   r.Odds.TotalGames,
		"opportunities": len(r.Arbitrage.Opportunities),
		"last_updated":  r.Odds.LastUpdated,
	})
}

// fingerprint hashes the snapshot content, ignoring the update timestamps.
func fingerprint(o domain.OddsSnapshot, a domain.ArbitrageSnapshot) (uint64, error) {
	o.LastUpdated = time.Time{}
	a.LastUpdated = time.Time{}
	raw, err := json.Marshal([]any{o, a})
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	_, _ = h.Write(raw)
	return h.Sum64(), nil
}

// AuditSink writes a row per refresh round to the audit log.
type AuditSink struct {
	store domain.AuditStore
}

// Audit event names.
const (
	AuditSnapshotRefreshed = "snapshot_refreshed"
	AuditUpstreamFailed    = "upstream_failed"
)

// NewAuditSink creates an AuditSink.
func NewAuditSink(store domain.AuditStore) *AuditSink {
	return &AuditSink{store: store}
}

func (s *AuditSink) Name() string { return "audit" }

func (s *AuditSink) Consume(ctx context.Context, r Refresh) error {
	var errs []error
	for _, failure := range []struct {
		endpoint string
		err      error
	}{
		{"odds", r.OddsErr},
		{"arbitrage", r.ArbitrageErr},
	} {
		if failure.err == nil {
			continue
		}
		if err := s.store.Log(ctx, AuditUpstreamFailed, map[string]any{
			"endpoint": failure.endpoint,
			"kind":     ErrorKind(failure.err),
			"error":    failure.err.Error(),
		}); err != nil {
			errs = append(errs, err)
		}
	}

	if r.OddsFetched || r.ArbitrageFetched {
		detail := map[string]any{}
		if r.OddsFetched {
			detail["nba_games"] = len(r.Odds.NBA)
			detail["nfl_games"] = len(r.Odds.NFL)
		}
		if r.ArbitrageFetched {
			detail["opportunities"] = len(r.Arbitrage.Opportunities)
		}
		if err := s.store.Log(ctx, AuditSnapshotRefreshed, detail); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
