package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// startRedis runs a throwaway Redis container. Set ORBS_INTEGRATION=1 to
// enable; it needs a reachable Docker daemon.
func startRedis(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("ORBS_INTEGRATION") == "" {
		t.Skip("set ORBS_INTEGRATION=1 to run Redis integration tests")
	}

	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := New(ctx, ClientConfig{Addr: host + ":" + port.Port(), KeyPrefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSnapshotCache(t *testing.T) {
	c := startRedis(t)
	ctx := context.Background()
	cache := NewSnapshotCache(c)

	_, err := cache.GetOdds(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	at := time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC)
	odds := domain.OddsSnapshot{
		NBA: []domain.Game{{
			ID:           "g1",
			HomeTeam:     "Boston Celtics",
			AwayTeam:     "Los Angeles Lakers",
			CommenceTime: at.Add(4 * time.Hour),
			Bookmakers:   []domain.BookmakerQuote{{Title: "FanDuel", HomeOdds: -110, AwayOdds: 120}},
		}},
		TotalGames:  1,
		LastUpdated: at,
	}
	require.NoError(t, cache.SetOdds(ctx, odds, time.Minute))

	got, err := cache.GetOdds(ctx)
	require.NoError(t, err)
	assert.Equal(t, "g1", got.NBA[0].ID)
	assert.NotNil(t, got.NFL)
	assert.True(t, at.Equal(got.LastUpdated))

	ttl, err := c.Underlying().TTL(ctx, "test:snapshot:odds").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.SetArbitrage(ctx, domain.ArbitrageSnapshot{LastUpdated: at}, 0))
	_, err = cache.GetArbitrage(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound, "zero ttl must not write")
}

func TestLockManager(t *testing.T) {
	c := startRedis(t)
	ctx := context.Background()
	lm := NewLockManager(c)

	unlock, err := lm.Acquire(ctx, "refresh", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "refresh", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()

	unlock2, err := lm.Acquire(ctx, "refresh", time.Minute)
	require.NoError(t, err)
	unlock2()
}

func TestRateLimiter(t *testing.T) {
	c := startRedis(t)
	ctx := context.Background()
	rl := NewRateLimiter(c)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rl.Allow(ctx, "5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshBus(t *testing.T) {
	c := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewRefreshBus(c)

	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, []byte(`{"type":"dashboard_refresh"}`)))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"type":"dashboard_refresh"}`, string(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	_, open := <-ch
	for open {
		_, open = <-ch
	}
}
