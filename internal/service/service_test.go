package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/alanyoungcy/orbstracker/internal/notify"
	"github.com/alanyoungcy/orbstracker/internal/platform/orbsapi"
)

var fixedNow = time.Date(2025, 1, 15, 20, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockUpstream struct {
	mock.Mock
}

func (m *MockUpstream) FetchOdds(ctx context.Context) (domain.OddsSnapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.OddsSnapshot), args.Error(1)
}

func (m *MockUpstream) FetchArbitrage(ctx context.Context) (domain.ArbitrageSnapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ArbitrageSnapshot), args.Error(1)
}

type memCache struct {
	mu   sync.Mutex
	odds *domain.OddsSnapshot
	arb  *domain.ArbitrageSnapshot
}

func (c *memCache) SetOdds(_ context.Context, snap domain.OddsSnapshot, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.odds = &snap
	return nil
}

func (c *memCache) GetOdds(context.Context) (domain.OddsSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.odds == nil {
		return domain.OddsSnapshot{}, domain.ErrNotFound
	}
	return *c.odds, nil
}

func (c *memCache) SetArbitrage(_ context.Context, snap domain.ArbitrageSnapshot, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arb = &snap
	return nil
}

func (c *memCache) GetArbitrage(context.Context) (domain.ArbitrageSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.arb == nil {
		return domain.ArbitrageSnapshot{}, domain.ErrNotFound
	}
	return *c.arb, nil
}

type recordingSink struct {
	mu   sync.Mutex
	seen []Refresh
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Consume(_ context.Context, r Refresh) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, r)
	return nil
}

func (s *recordingSink) rounds() []Refresh {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Refresh(nil), s.seen...)
}

func sampleOdds() domain.OddsSnapshot {
	return domain.OddsSnapshot{
		NBA: []domain.Game{{
			ID:           "g1",
			HomeTeam:     "Boston Celtics",
			AwayTeam:     "Los Angeles Lakers",
			CommenceTime: fixedNow.Add(2 * time.Hour),
			Bookmakers: []domain.BookmakerQuote{
				{Key: "fanduel", Title: "FanDuel", HomeOdds: -150, AwayOdds: 130},
			},
		}},
		NFL:         []domain.Game{},
		TotalGames:  1,
		LastUpdated: fixedNow.Add(-time.Minute),
	}
}

func sampleArbitrage() domain.ArbitrageSnapshot {
	return domain.ArbitrageSnapshot{
		Opportunities: []domain.ArbitrageOpportunity{{
			GameID:           "g1",
			HomeTeam:         "Boston Celtics",
			AwayTeam:         "Los Angeles Lakers",
			ProfitPercentage: 1.8,
			HomeBookmaker:    "FanDuel",
			AwayBookmaker:    "BetMGM",
			HomeOdds:         120,
			AwayOdds:         -105,
		}},
		LastUpdated: fixedNow.Add(-time.Minute),
	}
}

func newTestService(up Upstream, cache domain.SnapshotCache, sinks []Sink, revalidate time.Duration) *SnapshotService {
	svc := NewSnapshotService(up, cache, sinks, SnapshotConfig{
		Timeout:    time.Second,
		Revalidate: revalidate,
		BaseURL:    "http://backend",
	}, discardLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestSnapshotService_Load(t *testing.T) {
	t.Run("both reads succeed", func(t *testing.T) {
		up := new(MockUpstream)
		up.On("FetchOdds", mock.Anything).Return(sampleOdds(), nil).Once()
		up.On("FetchArbitrage", mock.Anything).Return(sampleArbitrage(), nil).Once()
		sink := &recordingSink{}

		svc := newTestService(up, nil, []Sink{sink}, 0)
		snaps := svc.Load(context.Background())
		svc.Wait()

		assert.Equal(t, sampleOdds(), snaps.Odds)
		assert.Equal(t, sampleArbitrage(), snaps.Arbitrage)

		rounds := sink.rounds()
		require.Len(t, rounds, 1)
		assert.True(t, rounds[0].OddsFetched)
		assert.True(t, rounds[0].ArbitrageFetched)
		assert.NoError(t, rounds[0].OddsErr)

		st := svc.Status()
		assert.Equal(t, "http://backend", st.BaseURL)
		assert.True(t, st.Odds.Healthy())
		assert.Equal(t, fixedNow, st.Arbitrage.LastSuccess)
		up.AssertExpectations(t)
	})

	t.Run("odds failure falls back to empty", func(t *testing.T) {
		up := new(MockUpstream)
		up.On("FetchOdds", mock.Anything).
			Return(domain.OddsSnapshot{}, fmt.Errorf("orbsapi: odds: %w", domain.ErrUpstreamStatus)).Once()
		up.On("FetchArbitrage", mock.Anything).Return(sampleArbitrage(), nil).Once()
		sink := &recordingSink{}

		svc := newTestService(up, nil, []Sink{sink}, 0)
		snaps := svc.Load(context.Background())
		svc.Wait()

		assert.Equal(t, domain.EmptyOddsSnapshot(fixedNow), snaps.Odds)
		assert.NotNil(t, snaps.Odds.NBA)
		assert.NotNil(t, snaps.Odds.NFL)
		assert.Len(t, snaps.Arbitrage.Opportunities, 1)

		rounds := sink.rounds()
		require.Len(t, rounds, 1)
		assert.False(t, rounds[0].OddsFetched)
		assert.ErrorIs(t, rounds[0].OddsErr, domain.ErrUpstreamStatus)

		st := svc.Status()
		assert.False(t, st.Odds.Healthy())
		assert.Equal(t, 1, st.Odds.ConsecutiveFailures)
		assert.Contains(t, st.Odds.LastError, "upstream")
		assert.True(t, st.Arbitrage.Healthy())
	})

	t.Run("both fail", func(t *testing.T) {
		up := new(MockUpstream)
		up.On("FetchOdds", mock.Anything).Return(domain.OddsSnapshot{}, errors.New("dial tcp: refused"))
		up.On("FetchArbitrage", mock.Anything).Return(domain.ArbitrageSnapshot{}, errors.New("dial tcp: refused"))

		svc := newTestService(up, nil, nil, 0)
		snaps := svc.Load(context.Background())

		assert.True(t, snaps.Odds.IsEmpty())
		assert.Equal(t, fixedNow, snaps.Odds.LastUpdated)
		assert.False(t, snaps.Arbitrage.HasOpportunities())
		assert.NotNil(t, snaps.Arbitrage.Opportunities)
		assert.Equal(t, fixedNow, snaps.Arbitrage.LastUpdated)
	})

	t.Run("nil lists normalised", func(t *testing.T) {
		up := new(MockUpstream)
		up.On("FetchOdds", mock.Anything).Return(domain.OddsSnapshot{LastUpdated: fixedNow}, nil)
		up.On("FetchArbitrage", mock.Anything).Return(domain.ArbitrageSnapshot{LastUpdated: fixedNow}, nil)

		snaps := newTestService(up, nil, nil, 0).Load(context.Background())
		assert.NotNil(t, snaps.Odds.NBA)
		assert.NotNil(t, snaps.Odds.NFL)
		assert.NotNil(t, snaps.Arbitrage.Opportunities)
	})
}

type countingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (n *countingNotifier) Notify(_ context.Context, a notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func TestSnapshotService_CallerCancelIsNotAnOutage(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	notifier := &countingNotifier{}
	rec := &recordingSink{}
	sinks := []Sink{NewSightingSink(NewMemorySightings(0), notifier, discardLogger()), rec}
	svc := newTestService(orbsapi.NewClient(slow.URL, 5*time.Second), nil, sinks, 0)
	svc.cfg.Timeout = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	stop := time.AfterFunc(20*time.Millisecond, cancel)
	defer stop.Stop()

	snaps := svc.Load(ctx)
	svc.Wait()

	assert.NotNil(t, snaps.Odds.NBA)
	assert.NotNil(t, snaps.Odds.NFL)
	assert.NotNil(t, snaps.Arbitrage.Opportunities)
	assert.Equal(t, fixedNow, snaps.Odds.LastUpdated)

	st := svc.Status()
	assert.True(t, st.Odds.Healthy())
	assert.True(t, st.Arbitrage.Healthy())
	assert.Empty(t, st.Odds.LastError)
	assert.Zero(t, notifier.count())
	assert.Empty(t, rec.rounds())
}

func TestSnapshotService_OwnTimeoutIsAnOutage(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	notifier := &countingNotifier{}
	sinks := []Sink{NewSightingSink(NewMemorySightings(0), notifier, discardLogger())}
	svc := newTestService(orbsapi.NewClient(slow.URL, 5*time.Second), nil, sinks, 0)
	svc.cfg.Timeout = 20 * time.Millisecond

	svc.Load(context.Background())
	svc.Wait()

	st := svc.Status()
	assert.False(t, st.Odds.Healthy())
	assert.False(t, st.Arbitrage.Healthy())
	assert.Equal(t, 2, notifier.count())
}

func TestSnapshotService_LoadServesCache(t *testing.T) {
	cache := &memCache{}
	up := new(MockUpstream)
	up.On("FetchOdds", mock.Anything).Return(sampleOdds(), nil).Once()
	up.On("FetchArbitrage", mock.Anything).Return(sampleArbitrage(), nil).Once()
	sink := &recordingSink{}

	svc := newTestService(up, cache, []Sink{sink}, time.Minute)

	first := svc.Load(context.Background())
	svc.Wait()
	second := svc.Load(context.Background())
	svc.Wait()

	assert.Equal(t, first, second)
	assert.Len(t, sink.rounds(), 1, "cache hits do not reach the sinks")
	up.AssertNumberOfCalls(t, "FetchOdds", 1)
	up.AssertNumberOfCalls(t, "FetchArbitrage", 1)
}

func TestSnapshotService_FailureNotCached(t *testing.T) {
	cache := &memCache{}
	up := new(MockUpstream)
	up.On("FetchOdds", mock.Anything).Return(domain.OddsSnapshot{}, domain.ErrUpstreamTransport)
	up.On("FetchArbitrage", mock.Anything).Return(domain.ArbitrageSnapshot{}, domain.ErrUpstreamTransport)

	svc := newTestService(up, cache, nil, time.Minute)
	svc.Load(context.Background())
	svc.Load(context.Background())

	up.AssertNumberOfCalls(t, "FetchOdds", 2)
	assert.Equal(t, 2, svc.Status().Odds.ConsecutiveFailures)
}

func TestSnapshotService_RefreshBypassesCache(t *testing.T) {
	stale := sampleOdds()
	stale.TotalGames = 99
	cache := &memCache{odds: &stale}

	up := new(MockUpstream)
	up.On("FetchOdds", mock.Anything).Return(sampleOdds(), nil).Once()
	up.On("FetchArbitrage", mock.Anything).Return(sampleArbitrage(), nil).Once()
	sink := &recordingSink{}

	svc := newTestService(up, cache, []Sink{sink}, time.Minute)
	snaps := svc.Refresh(context.Background())

	assert.Equal(t, 1, snaps.Odds.TotalGames)
	require.Len(t, sink.rounds(), 1, "sinks run before Refresh returns")

	cached, err := cache.GetOdds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalGames)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "status", ErrorKind(fmt.Errorf("x: %w", domain.ErrUpstreamStatus)))
	assert.Equal(t, "malformed", ErrorKind(fmt.Errorf("x: %w", domain.ErrUpstreamMalformed)))
	assert.Equal(t, "timeout", ErrorKind(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, "transport", ErrorKind(domain.ErrUpstreamTransport))
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, alert notify.Alert) error {
	return m.Called(ctx, alert).Error(0)
}

func TestSightingSink_AlertsOnlyNewOpportunities(t *testing.T) {
	n := new(MockNotifier)
	opp := sampleArbitrage().Opportunities[0]
	n.On("Notify", mock.Anything, notify.ArbitrageAlert(opp)).Return(nil).Once()

	store := NewMemorySightings(0)
	sink := NewSightingSink(store, n, discardLogger())
	r := Refresh{At: fixedNow, Arbitrage: sampleArbitrage(), ArbitrageFetched: true}

	require.NoError(t, sink.Consume(context.Background(), r))
	r.At = fixedNow.Add(time.Minute)
	require.NoError(t, sink.Consume(context.Background(), r))

	n.AssertExpectations(t)

	list, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].TimesSeen)
}

func TestSightingSink_UpstreamFailureAlertsOnTransition(t *testing.T) {
	n := new(MockNotifier)
	n.On("Notify", mock.Anything, mock.MatchedBy(func(a notify.Alert) bool {
		return a.Event == notify.EventUpstreamFailed
	})).Return(nil)

	sink := NewSightingSink(NewMemorySightings(0), n, discardLogger())
	failed := Refresh{At: fixedNow, OddsErr: domain.ErrUpstreamTransport}
	ok := Refresh{At: fixedNow, OddsFetched: true}

	ctx := context.Background()
	require.NoError(t, sink.Consume(ctx, failed))
	require.NoError(t, sink.Consume(ctx, failed))
	n.AssertNumberOfCalls(t, "Notify", 1)

	require.NoError(t, sink.Consume(ctx, ok))
	require.NoError(t, sink.Consume(ctx, failed))
	n.AssertNumberOfCalls(t, "Notify", 2)
}

func TestSightingSink_SkipsCachedArbitrage(t *testing.T) {
	store := NewMemorySightings(0)
	sink := NewSightingSink(store, nil, discardLogger())

	require.NoError(t, sink.Consume(context.Background(), Refresh{At: fixedNow, Arbitrage: sampleArbitrage()}))

	list, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestBroadcastSink(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewBroadcastSink(pub, discardLogger())
	ctx := context.Background()

	r := Refresh{At: fixedNow, Odds: sampleOdds(), Arbitrage: sampleArbitrage(), OddsFetched: true, ArbitrageFetched: true}
	require.NoError(t, sink.Consume(ctx, r))

	// Same content with a newer timestamp is not rebroadcast.
	r.Odds.LastUpdated = fixedNow
	require.NoError(t, sink.Consume(ctx, r))
	require.Len(t, pub.payloads, 1)

	r.Arbitrage = domain.EmptyArbitrageSnapshot(fixedNow)
	require.NoError(t, sink.Consume(ctx, r))
	require.Len(t, pub.payloads, 2)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[1], &msg))
	assert.Equal(t, "dashboard_refresh", msg["type"])
	assert.EqualValues(t, 1, msg["nba_games"])
	assert.EqualValues(t, 0, msg["opportunities"])

	// Nothing fetched: nothing published.
	require.NoError(t, sink.Consume(ctx, Refresh{OddsErr: domain.ErrUpstreamTransport}))
	assert.Len(t, pub.payloads, 2)
}

func TestBroadcastSink_PublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("redis down")}
	sink := NewBroadcastSink(pub, discardLogger())

	err := sink.Consume(context.Background(), Refresh{Odds: sampleOdds(), OddsFetched: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

type memAudit struct {
	entries []domain.AuditEntry
}

func (m *memAudit) Log(_ context.Context, event string, detail map[string]any) error {
	m.entries = append(m.entries, domain.AuditEntry{Event: event, Detail: detail})
	return nil
}

func (m *memAudit) List(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	return m.entries, nil
}

func TestAuditSink(t *testing.T) {
	store := &memAudit{}
	sink := NewAuditSink(store)

	err := sink.Consume(context.Background(), Refresh{
		Odds:         sampleOdds(),
		OddsFetched:  true,
		ArbitrageErr: fmt.Errorf("orbsapi: arbitrage: %w", domain.ErrUpstreamMalformed),
	})
	require.NoError(t, err)
	require.Len(t, store.entries, 2)

	assert.Equal(t, AuditUpstreamFailed, store.entries[0].Event)
	assert.Equal(t, "arbitrage", store.entries[0].Detail["endpoint"])
	assert.Equal(t, "malformed", store.entries[0].Detail["kind"])

	assert.Equal(t, AuditSnapshotRefreshed, store.entries[1].Event)
	assert.Equal(t, 1, store.entries[1].Detail["nba_games"])
	assert.NotContains(t, store.entries[1].Detail, "opportunities")
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) ArchiveOdds(ctx context.Context, snap domain.OddsSnapshot, at time.Time) (string, error) {
	args := m.Called(ctx, snap, at)
	return args.String(0), args.Error(1)
}

func (m *MockArchiver) ArchiveArbitrage(ctx context.Context, snap domain.ArbitrageSnapshot, at time.Time) (string, error) {
	args := m.Called(ctx, snap, at)
	return args.String(0), args.Error(1)
}

func TestArchiveSink(t *testing.T) {
	a := new(MockArchiver)
	a.On("ArchiveOdds", mock.Anything, sampleOdds(), fixedNow).Return("snapshots/odds.json", nil).Once()
	a.On("ArchiveArbitrage", mock.Anything, mock.Anything, fixedNow).Return("", errors.New("s3: put: denied")).Once()

	sink := NewArchiveSink(a, discardLogger())
	err := sink.Consume(context.Background(), Refresh{
		At:               fixedNow,
		Odds:             sampleOdds(),
		Arbitrage:        sampleArbitrage(),
		OddsFetched:      true,
		ArbitrageFetched: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
	a.AssertExpectations(t)

	// Cached data is not archived again.
	require.NoError(t, sink.Consume(context.Background(), Refresh{At: fixedNow, Odds: sampleOdds()}))
	a.AssertNumberOfCalls(t, "ArchiveOdds", 1)
}

func TestMemorySightings(t *testing.T) {
	m := NewMemorySightings(2)
	ctx := context.Background()
	opp := func(id string, profit float64) domain.ArbitrageOpportunity {
		return domain.ArbitrageOpportunity{GameID: id, HomeBookmaker: "A", AwayBookmaker: "B", ProfitPercentage: profit}
	}

	fresh, err := m.Record(ctx, []domain.ArbitrageOpportunity{opp("g1", 1.0)}, fixedNow)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)

	fresh, err = m.Record(ctx, []domain.ArbitrageOpportunity{opp("g1", 2.0), opp("g2", 0.5)}, fixedNow.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "g2", fresh[0].GameID)

	list, err := m.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	for _, s := range list {
		if s.Opportunity.GameID == "g1" {
			assert.Equal(t, 2.0, s.PeakProfit)
			assert.Equal(t, 2, s.TimesSeen)
			assert.Equal(t, fixedNow, s.FirstSeenAt)
		}
	}

	_, err = m.Record(ctx, []domain.ArbitrageOpportunity{opp("g3", 3.0)}, fixedNow.Add(2*time.Minute))
	require.NoError(t, err)
	list, err = m.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "g3", list[0].Opportunity.GameID)

	all, err := m.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2, "capacity is enforced")
}

type MockLocks struct {
	mock.Mock
}

func (m *MockLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	unlock, _ := args.Get(0).(func())
	return unlock, args.Error(1)
}

type countingRefresh struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRefresh) Refresh(context.Context) Snapshots {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return Snapshots{}
}

func (c *countingRefresh) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRefresher_Tick(t *testing.T) {
	t.Run("lock held elsewhere", func(t *testing.T) {
		locks := new(MockLocks)
		locks.On("Acquire", mock.Anything, "refresh", 27*time.Second).Return(nil, domain.ErrLockHeld)
		svc := &countingRefresh{}

		NewRefresher(svc, locks, 30*time.Second, discardLogger()).tick(context.Background())
		assert.Equal(t, 0, svc.count())
	})

	t.Run("lock acquired", func(t *testing.T) {
		locks := new(MockLocks)
		locks.On("Acquire", mock.Anything, "refresh", 27*time.Second).Return(func() {}, nil)
		svc := &countingRefresh{}

		NewRefresher(svc, locks, 30*time.Second, discardLogger()).tick(context.Background())
		assert.Equal(t, 1, svc.count())
	})

	t.Run("lock backend down", func(t *testing.T) {
		locks := new(MockLocks)
		locks.On("Acquire", mock.Anything, "refresh", mock.Anything).Return(nil, errors.New("redis: connection refused"))
		svc := &countingRefresh{}

		NewRefresher(svc, locks, 30*time.Second, discardLogger()).tick(context.Background())
		assert.Equal(t, 1, svc.count())
	})
}

func TestRefresher_Run(t *testing.T) {
	svc := &countingRefresh{}
	r := NewRefresher(svc, nil, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return svc.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestRefresher_Disabled(t *testing.T) {
	svc := &countingRefresh{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, NewRefresher(svc, nil, 0, discardLogger()).Run(ctx))
	assert.Equal(t, 0, svc.count())
}
