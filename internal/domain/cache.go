package domain

import (
	"context"
	"time"
)

// SnapshotCache holds recently fetched snapshots for the revalidation window.
// Get methods return ErrNotFound on a miss.
type SnapshotCache interface {
	SetOdds(ctx context.Context, snap OddsSnapshot, ttl time.Duration) error
	GetOdds(ctx context.Context) (OddsSnapshot, error)
	SetArbitrage(ctx context.Context, snap ArbitrageSnapshot, ttl time.Duration) error
	GetArbitrage(ctx context.Context) (ArbitrageSnapshot, error)
}

// LockManager hands out short-lived exclusive locks shared between replicas.
// Acquire returns ErrLockHeld when another holder owns the key.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RefreshBus fans refresh notices out to every replica serving live clients.
type RefreshBus interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// RateLimiter counts requests per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
