package domain

import (
	"context"
	"time"
)

// SightingStore records arbitrage opportunities as they appear upstream.
type SightingStore interface {
	// Record upserts every opportunity observed at seenAt and returns the
	// ones that had never been recorded before.
	Record(ctx context.Context, opps []ArbitrageOpportunity, seenAt time.Time) ([]ArbitrageOpportunity, error)
	ListRecent(ctx context.Context, limit int) ([]ArbitrageSighting, error)
}

// AuditEntry is one operational event, such as a refresh or an archive upload.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore appends and lists audit entries, newest first.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}
