package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

// HoldingRepo implements HoldingRepository using PostgreSQL.
type HoldingRepo struct{ db *DB }

// NewHoldingRepo constructs a holding repository.
func NewHoldingRepo(db *DB) *HoldingRepo { return &HoldingRepo{db: db} }

// List returns holdings of accountID ordered by stock code.
func (r *HoldingRepo) List(ctx context.Context, accountID int64) ([]model.Holding, error) {
	const q = `
SELECT id, user_id, stock_code, stock_name, average_price::text, quantity, updated_at
FROM user_stocks
WHERE user_id = $1
ORDER BY stock_code`
	rows, err := r.db.Pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Holding
	for rows.Next() {
		var (
			h     model.Holding
			price string
		)
		if err := rows.Scan(&h.ID, &h.AccountID, &h.StockCode, &h.StockName, &price, &h.Quantity, &h.UpdatedAt); err != nil {
			return nil, err
		}
		if h.AveragePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("holding %d: average price %q: %w", h.ID, price, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Upsert inserts the holding or updates the existing (user_id, stock_code) row.
func (r *HoldingRepo) Upsert(ctx context.Context, h *model.Holding) error {
	const q = `
INSERT INTO user_stocks (user_id, stock_code, stock_name, average_price, quantity, updated_at)
VALUES ($1, $2, $3, $4::numeric, $5, now())
ON CONFLICT (user_id, stock_code) DO UPDATE
SET stock_name = EXCLUDED.stock_name,
    average_price = EXCLUDED.average_price,
    quantity = EXCLUDED.quantity,
    updated_at = now()
RETURNING id, updated_at`
	return r.db.Pool.QueryRow(ctx, q, h.AccountID, h.StockCode, h.StockName, h.AveragePrice.String(), h.Quantity).
		Scan(&h.ID, &h.UpdatedAt)
}

// Delete removes the holding for (accountID, stockCode).
func (r *HoldingRepo) Delete(ctx context.Context, accountID int64, stockCode string) error {
	const q = `DELETE FROM user_stocks WHERE user_id = $1 AND stock_code = $2`
	tag, err := r.db.Pool.Exec(ctx, q, accountID, stockCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
