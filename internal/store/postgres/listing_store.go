package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL. Every
// dispatched listing event lands here once, keyed by its generated id.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a new ListingStore backed by the given pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Insert persists one listing event.
func (s *ListingStore) Insert(ctx context.Context, event domain.ListingEvent) error {
	const query = `
		INSERT INTO listings (
			id, chain_id, token_address, token_name, token_symbol,
			pool_id, dex_address, liquidity_usd, volume_usd,
			detected_via, match_kind, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		event.ID, event.ChainID, event.TokenAddress, event.TokenName,
		event.TokenSymbol, event.PoolID, event.DexAddress,
		event.LiquidityUSD, event.VolumeUSD,
		string(event.DetectedVia), string(event.Match), event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert listing %s: %w", event.ID, err)
	}
	return nil
}

// ListRecent returns the most recently detected listings, newest first.
func (s *ListingStore) ListRecent(ctx context.Context, limit int) ([]domain.ListingEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, chain_id, token_address, token_name, token_symbol,
		       pool_id, dex_address, liquidity_usd, volume_usd,
		       detected_via, match_kind, detected_at
		FROM listings
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent listings: %w", err)
	}
	defer rows.Close()

	var events []domain.ListingEvent
	for rows.Next() {
		var e domain.ListingEvent
		var via, match string

		if err := rows.Scan(
			&e.ID, &e.ChainID, &e.TokenAddress, &e.TokenName, &e.TokenSymbol,
			&e.PoolID, &e.DexAddress, &e.LiquidityUSD, &e.VolumeUSD,
			&via, &match, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		e.DetectedVia = domain.DetectionPath(via)
		e.Match = domain.MatchKind(match)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent listings rows: %w", err)
	}
	return events, nil
}

var _ domain.ListingStore = (*ListingStore)(nil)
