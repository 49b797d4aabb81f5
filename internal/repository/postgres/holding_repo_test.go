package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

func TestHoldingRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewHoldingRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, user_id, stock_code, stock_name, average_price::text, quantity, updated_at FROM user_stocks WHERE user_id = \$1 ORDER BY stock_code`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "stock_code", "stock_name", "average_price", "quantity", "updated_at"}).
			AddRow(int64(10), int64(1), "005930", "삼성전자", "71000.5000", int64(3), now).
			AddRow(int64(11), int64(1), "035420", "NAVER", "180000", int64(1), now))

	hs, err := r.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	require.Equal(t, "005930", hs[0].StockCode)
	require.True(t, hs[0].AveragePrice.Equal(decimal.RequireFromString("71000.5")))
	require.Equal(t, int64(3), hs[0].Quantity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldingRepo_List_BadPrice(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewHoldingRepo(db)

	mock.ExpectQuery(`FROM user_stocks`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "stock_code", "stock_name", "average_price", "quantity", "updated_at"}).
			AddRow(int64(10), int64(1), "005930", "x", "NaN?", int64(3), time.Now()))

	_, err := r.List(context.Background(), 1)
	require.Error(t, err)
}

func TestHoldingRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewHoldingRepo(db)
	now := time.Now().UTC()

	h := &model.Holding{AccountID: 1, StockCode: "005930", StockName: "삼성전자", AveragePrice: decimal.NewFromInt(70000), Quantity: 5}
	mock.ExpectQuery(`INSERT INTO user_stocks .* ON CONFLICT \(user_id, stock_code\) DO UPDATE .* RETURNING id, updated_at`).
		WithArgs(int64(1), "005930", "삼성전자", "70000", int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "updated_at"}).AddRow(int64(42), now))

	require.NoError(t, r.Upsert(context.Background(), h))
	require.Equal(t, int64(42), h.ID)
	require.Equal(t, now, h.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldingRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewHoldingRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM user_stocks WHERE user_id = \$1 AND stock_code = \$2`).
		WithArgs(int64(1), "005930").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, 1, "005930"))

	mock.ExpectExec(`DELETE FROM user_stocks WHERE user_id = \$1 AND stock_code = \$2`).
		WithArgs(int64(1), "005930").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, 1, "005930"), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
