package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// SightingStore implements domain.SightingStore. One row exists per
// (game_id, home_bookmaker, away_bookmaker); repeated sightings bump
// times_seen, last_seen_at and the peak profit.
type SightingStore struct {
	pool *pgxpool.Pool
}

// NewSightingStore creates a SightingStore backed by the given pool.
func NewSightingStore(pool *pgxpool.Pool) *SightingStore {
	return &SightingStore{pool: pool}
}

// xmax is zero only for a row created by this statement, which tells a fresh
// insert apart from a conflict update.
const upsertSighting = `
	INSERT INTO arbitrage_sightings (
		game_id, home_bookmaker, away_bookmaker,
		home_team, away_team, home_odds, away_odds,
		profit_percentage, peak_profit, times_seen,
		first_seen_at, last_seen_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, 1, $9, $9)
	ON CONFLICT (game_id, home_bookmaker, away_bookmaker) DO UPDATE SET
		home_team         = EXCLUDED.home_team,
		away_team         = EXCLUDED.away_team,
		home_odds         = EXCLUDED.home_odds,
		away_odds         = EXCLUDED.away_odds,
		profit_percentage = EXCLUDED.profit_percentage,
		peak_profit       = GREATEST(arbitrage_sightings.peak_profit, EXCLUDED.profit_percentage),
		times_seen        = arbitrage_sightings.times_seen + 1,
		last_seen_at      = EXCLUDED.last_seen_at
	RETURNING (xmax = 0) AS inserted`

// Record upserts opps in one batch and returns those seen for the first time.
func (s *SightingStore) Record(ctx context.Context, opps []domain.ArbitrageOpportunity, seenAt time.Time) ([]domain.ArbitrageOpportunity, error) {
	if len(opps) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, o := range opps {
		batch.Queue(upsertSighting,
			o.GameID, o.HomeBookmaker, o.AwayBookmaker,
			o.HomeTeam, o.AwayTeam, o.HomeOdds, o.AwayOdds,
			o.ProfitPercentage, seenAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var fresh []domain.ArbitrageOpportunity
	for _, o := range opps {
		var inserted bool
		if err := br.QueryRow().Scan(&inserted); err != nil {
			return nil, fmt.Errorf("postgres: record sighting %s: %w", o.Key(), err)
		}
		if inserted {
			fresh = append(fresh, o)
		}
	}

	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("postgres: record sightings: %w", err)
	}
	return fresh, nil
}

// ListRecent returns sightings ordered by last_seen_at, newest first.
func (s *SightingStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageSighting, error) {
	query := `
		SELECT game_id, home_bookmaker, away_bookmaker, home_team, away_team,
		       home_odds, away_odds, profit_percentage, peak_profit, times_seen,
		       first_seen_at, last_seen_at
		FROM arbitrage_sightings
		ORDER BY last_seen_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sightings: %w", err)
	}
	defer rows.Close()

	sightings := []domain.ArbitrageSighting{}
	for rows.Next() {
		var sg domain.ArbitrageSighting
		o := &sg.Opportunity
		if err := rows.Scan(
			&o.GameID, &o.HomeBookmaker, &o.AwayBookmaker, &o.HomeTeam, &o.AwayTeam,
			&o.HomeOdds, &o.AwayOdds, &o.ProfitPercentage, &sg.PeakProfit, &sg.TimesSeen,
			&sg.FirstSeenAt, &sg.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan sighting: %w", err)
		}
		sightings = append(sightings, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sightings rows: %w", err)
	}
	return sightings, nil
}

// Compile-time interface check.
var _ domain.SightingStore = (*SightingStore)(nil)
