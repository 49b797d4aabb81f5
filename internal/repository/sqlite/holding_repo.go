package sqlite

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

// HoldingRepo implements HoldingRepository on SQLite.
type HoldingRepo struct{ db *DB }

// NewHoldingRepo constructs a holding repository.
func NewHoldingRepo(db *DB) *HoldingRepo { return &HoldingRepo{db: db} }

// List returns holdings of accountID ordered by stock code.
func (r *HoldingRepo) List(ctx context.Context, accountID int64) ([]model.Holding, error) {
	const q = `
SELECT id, user_id, stock_code, stock_name, average_price, quantity, updated_at
FROM user_stocks WHERE user_id = ? ORDER BY stock_code`
	rows, err := r.db.SQL.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, fmt.Errorf("select holdings: %w", err)
	}
	defer rows.Close()

	var out []model.Holding
	for rows.Next() {
		var (
			h       model.Holding
			price   string
			updated int64
		)
		if err := rows.Scan(&h.ID, &h.AccountID, &h.StockCode, &h.StockName, &price, &h.Quantity, &updated); err != nil {
			return nil, err
		}
		if h.AveragePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("holding %d: average price %q: %w", h.ID, price, err)
		}
		h.UpdatedAt = fromMillis(updated)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert creates the holding or updates the existing (user_id, stock_code) row.
func (r *HoldingRepo) Upsert(ctx context.Context, h *model.Holding) error {
	const q = `
INSERT INTO user_stocks (user_id, stock_code, stock_name, average_price, quantity, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, stock_code) DO UPDATE SET
	stock_name = excluded.stock_name,
	average_price = excluded.average_price,
	quantity = excluded.quantity,
	updated_at = excluded.updated_at
RETURNING id`
	updated := r.db.nowMillis()
	err := r.db.SQL.QueryRowContext(ctx, q, h.AccountID, h.StockCode, h.StockName,
		h.AveragePrice.String(), h.Quantity, updated).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	h.UpdatedAt = fromMillis(updated)
	return nil
}

// Delete removes the holding for (accountID, stockCode).
func (r *HoldingRepo) Delete(ctx context.Context, accountID int64, stockCode string) error {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM user_stocks WHERE user_id = ? AND stock_code = ?`, accountID, stockCode)
	if err != nil {
		return err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
