package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtrask/stinkbot/internal/domain"
)

// OrderStore journals terminal orders (filled or cancelled) for offline
// analysis of strategy behaviour.
type OrderStore struct {
	pool   *pgxpool.Pool
	symbol string
}

// NewOrderStore creates an OrderStore writing through the given client for
// the given traded symbol.
func NewOrderStore(c *Client, symbol string) *OrderStore {
	return &OrderStore{pool: c.Pool(), symbol: symbol}
}

// RecordTerminal inserts a terminal order. Duplicate IDs update the existing
// row so a re-delivered order never fails the journal.
func (s *OrderStore) RecordTerminal(ctx context.Context, o domain.Order) error {
	const q = `
		INSERT INTO orders (
			id, symbol, price, size, status, created_at, filled_at,
			cancelled_at, reference_mid, reference_best_bid, k_factor_used,
			imbalance_at_placement
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			filled_at = EXCLUDED.filled_at,
			cancelled_at = EXCLUDED.cancelled_at`

	_, err := s.pool.Exec(ctx, q,
		o.ID,
		s.symbol,
		o.Price,
		o.Size,
		string(o.Status),
		o.CreatedAt,
		o.FilledAt,
		o.CancelledAt,
		o.ReferenceMid,
		o.ReferenceBestBid,
		o.KFactorUsed,
		o.ImbalanceAtPlacement,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order %s: %w", o.ID, err)
	}
	return nil
}
