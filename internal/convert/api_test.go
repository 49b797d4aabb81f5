package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/stockfolio/internal/api"
	"github.com/and161185/stockfolio/internal/model"
)

func TestToAccount_HidesSecrets(t *testing.T) {
	require.Nil(t, ToAccount(nil))

	a := &model.Account{
		ID: 3, Username: "alice", Name: "Alice", Email: "a@x.com",
		PasswordHash: "$argon2id$...", EmailVerificationToken: "tok", RefreshToken: "rt",
		EmailVerified: true, CreatedAt: time.Unix(100, 0),
	}
	b, err := json.Marshal(ToAccount(a))
	require.NoError(t, err)
	for _, secret := range []string{"argon2id", `"tok"`, `"rt"`} {
		require.NotContains(t, string(b), secret)
	}
	require.Contains(t, string(b), `"email_verified":true`)
}

func TestToTokens(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	got := ToTokens(model.Tokens{AccessToken: "a", RefreshToken: "r", AccessExpiresAt: exp, RefreshExpiresAt: exp})
	require.Equal(t, "Bearer", got.TokenType)
	require.Equal(t, "a", got.AccessToken)
	require.Equal(t, "r", got.RefreshToken)
}

func TestFromRequests(t *testing.T) {
	require.Equal(t, model.Signup{}, FromSignup(nil))
	require.Equal(t, model.Signup{Username: "u", Password: "p", Name: "n", Email: "e"},
		FromSignup(&api.SignupRequest{Username: "u", Password: "p", Name: "n", Email: "e"}))

	require.Equal(t, model.Holding{}, FromPutHolding(nil))
	h := FromPutHolding(&api.PutHoldingRequest{StockCode: "005930", StockName: "삼성전자", AveragePrice: decimal.NewFromInt(5), Quantity: 2})
	require.Equal(t, "005930", h.StockCode)
	require.Equal(t, int64(2), h.Quantity)
	require.Zero(t, h.AccountID)
}

func TestToHoldingList_Valuation(t *testing.T) {
	require.NotNil(t, ToHoldingList(nil).Holdings)

	vs := []model.HoldingView{
		{Holding: model.Holding{StockCode: "005930", AveragePrice: decimal.NewFromInt(60000), Quantity: 2}, CurrentPrice: decimal.NewFromInt(71000)},
		{Holding: model.Holding{StockCode: "999999", AveragePrice: decimal.NewFromInt(10), Quantity: 1}},
	}
	got := ToHoldingList(vs)
	require.Len(t, got.Holdings, 2)
	require.True(t, got.Holdings[0].MarketValue.Equal(decimal.NewFromInt(142000)))
	require.True(t, got.Holdings[0].CostBasis.Equal(decimal.NewFromInt(120000)))
	require.True(t, got.Holdings[1].CurrentPrice.IsZero())
	require.True(t, got.Holdings[1].MarketValue.IsZero())

	require.True(t, ToHolding(vs[0].Holding).CurrentPrice.IsZero())
}

func TestCatalog(t *testing.T) {
	require.NotNil(t, ToStockList(nil).Stocks)
	l := ToStockList([]model.Stock{{Code: "035420", Name: "NAVER"}})
	require.Equal(t, []api.Stock{{Code: "035420", Name: "NAVER"}}, l.Stocks)

	d := ToStockDetail(model.StockDetail{Stock: model.Stock{Code: "035420", Name: "NAVER"}, CurrentPrice: decimal.NewFromInt(200000)})
	require.Equal(t, "NAVER", d.Name)
	require.True(t, d.CurrentPrice.Equal(decimal.NewFromInt(200000)))
}
