package repository

import (
	"context"

	"github.com/and161185/stockfolio/internal/model"
)

// HoldingRepository stores stock positions, at most one per (account, stock code).
type HoldingRepository interface {
	// List returns all holdings of an account ordered by stock code.
	List(ctx context.Context, accountID int64) ([]model.Holding, error)

	// Upsert creates the holding or replaces price, quantity and name of an existing one.
	// h.ID and h.UpdatedAt are set from the stored row.
	Upsert(ctx context.Context, h *model.Holding) error

	// Delete removes a holding. Returns errs.ErrNotFound if there was none.
	Delete(ctx context.Context, accountID int64, stockCode string) error
}
