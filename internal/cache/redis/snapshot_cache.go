package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotCache implements domain.SnapshotCache with one JSON string value
// per snapshot kind.
//
// Key schema:
//
//	{prefix}snapshot:odds      - OddsSnapshot JSON
//	{prefix}snapshot:arbitrage - ArbitrageSnapshot JSON
type SnapshotCache struct {
	c *Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{c: c}
}

func (sc *SnapshotCache) oddsKey() string      { return sc.c.key("snapshot", "odds") }
func (sc *SnapshotCache) arbitrageKey() string { return sc.c.key("snapshot", "arbitrage") }

// SetOdds stores the odds snapshot for ttl. A non-positive ttl is a no-op.
func (sc *SnapshotCache) SetOdds(ctx context.Context, snap domain.OddsSnapshot, ttl time.Duration) error {
	return sc.set(ctx, sc.oddsKey(), snap, ttl)
}

// GetOdds returns the cached odds snapshot or domain.ErrNotFound.
func (sc *SnapshotCache) GetOdds(ctx context.Context) (domain.OddsSnapshot, error) {
	var snap domain.OddsSnapshot
	if err := sc.get(ctx, sc.oddsKey(), &snap); err != nil {
		return domain.OddsSnapshot{}, err
	}
	if snap.NBA == nil {
		snap.NBA = []domain.Game{}
	}
	if snap.NFL == nil {
		snap.NFL = []domain.Game{}
	}
	return snap, nil
}

// SetArbitrage stores the arbitrage snapshot for ttl.
func (sc *SnapshotCache) SetArbitrage(ctx context.Context, snap domain.ArbitrageSnapshot, ttl time.Duration) error {
	return sc.set(ctx, sc.arbitrageKey(), snap, ttl)
}

// GetArbitrage returns the cached arbitrage snapshot or domain.ErrNotFound.
func (sc *SnapshotCache) GetArbitrage(ctx context.Context) (domain.ArbitrageSnapshot, error) {
	var snap domain.ArbitrageSnapshot
	if err := sc.get(ctx, sc.arbitrageKey(), &snap); err != nil {
		return domain.ArbitrageSnapshot{}, err
	}
	if snap.Opportunities == nil {
		snap.Opportunities = []domain.ArbitrageOpportunity{}
	}
	return snap, nil
}

func (sc *SnapshotCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", key, err)
	}
	if err := sc.c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

func (sc *SnapshotCache) get(ctx context.Context, key string, v any) error {
	data, err := sc.c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("redis: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("redis: unmarshal %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
