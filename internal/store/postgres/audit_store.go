package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// AuditStore keeps the operational trail of refreshes and upstream failures
// in audit_log. Detail maps are stored as JSONB; an empty map is stored as
// NULL and read back as an empty map.
type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

const (
	insertAuditSQL = `INSERT INTO audit_log (event, detail) VALUES ($1, $2)`
	listAuditSQL   = `
SELECT id, event, COALESCE(detail, '{}'::jsonb), created_at
FROM audit_log
ORDER BY created_at DESC, id DESC
LIMIT $1`
)

// Log appends one entry for event.
func (s *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	var raw []byte
	if len(detail) > 0 {
		var err error
		if raw, err = json.Marshal(detail); err != nil {
			return fmt.Errorf("postgres: audit %s: encode detail: %w", event, err)
		}
	}
	if _, err := s.pool.Exec(ctx, insertAuditSQL, event, raw); err != nil {
		return fmt.Errorf("postgres: audit %s: %w", event, err)
	}
	return nil
}

// List returns the newest entries first. A non-positive limit means no limit.
func (s *AuditStore) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	var arg any
	if limit > 0 {
		arg = limit
	}
	rows, err := s.pool.Query(ctx, listAuditSQL, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.AuditEntry])
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

var _ domain.AuditStore = (*AuditStore)(nil)
