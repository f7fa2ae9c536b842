package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// PurchaseStore implements domain.PurchaseStore using PostgreSQL.
type PurchaseStore struct {
	pool *pgxpool.Pool
}

// NewPurchaseStore creates a PurchaseStore backed by pool.
func NewPurchaseStore(pool *pgxpool.Pool) *PurchaseStore {
	return &PurchaseStore{pool: pool}
}

// Insert journals one purchase.
func (s *PurchaseStore) Insert(ctx context.Context, rec domain.PurchaseRecord) error {
	const query = `
		INSERT INTO purchases (id, session_id, symbol, kind, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.SessionID, rec.Symbol, string(rec.Kind), rec.Quantity, rec.Price, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert purchase %s: %w", rec.ID, err)
	}
	return nil
}

// List returns journaled purchases, newest first.
func (s *PurchaseStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.PurchaseRecord, error) {
	q := newListQuery(`SELECT id::text, session_id::text, symbol, kind, quantity, price, created_at FROM purchases`)
	q.filter(opts, "symbol")
	q.page("created_at DESC", opts)

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list purchases: %w", err)
	}
	defer rows.Close()

	var out []domain.PurchaseRecord
	for rows.Next() {
		var r domain.PurchaseRecord
		var kind string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Symbol, &kind, &r.Quantity, &r.Price, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan purchase: %w", err)
		}
		r.Kind = domain.PurchaseKind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list purchases rows: %w", err)
	}
	return out, nil
}

// CountBySession returns how many purchases a session journaled.
func (s *PurchaseStore) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count purchases %s: %w", sessionID, err)
	}
	return n, nil
}

var _ domain.PurchaseStore = (*PurchaseStore)(nil)
