// Package convert maps domain models to wire messages and back.
package convert

import (
	"github.com/and161185/stockfolio/internal/api"
	"github.com/and161185/stockfolio/internal/model"
)

// --- accounts ---

// ToAccount hides the hash and token columns of a.
func ToAccount(a *model.Account) *api.Account {
	if a == nil {
		return nil
	}
	return &api.Account{
		Username:      a.Username,
		Name:          a.Name,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
	}
}

// FromSignup converts a signup request.
func FromSignup(in *api.SignupRequest) model.Signup {
	if in == nil {
		return model.Signup{}
	}
	return model.Signup{Username: in.Username, Password: in.Password, Name: in.Name, Email: in.Email}
}

// ToTokens wraps an issued pair as a bearer response.
func ToTokens(t model.Tokens) *api.Tokens {
	return &api.Tokens{
		TokenType:        "Bearer",
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

// --- holdings ---

// FromPutHolding converts a holding write. Validation is left to the service.
func FromPutHolding(in *api.PutHoldingRequest) model.Holding {
	if in == nil {
		return model.Holding{}
	}
	return model.Holding{
		StockCode:    in.StockCode,
		StockName:    in.StockName,
		AveragePrice: in.AveragePrice,
		Quantity:     in.Quantity,
	}
}

// ToHolding converts a stored holding without a quote.
func ToHolding(h model.Holding) api.Holding {
	return ToHoldingView(model.HoldingView{Holding: h})
}

// ToHoldingView converts a valued holding.
func ToHoldingView(v model.HoldingView) api.Holding {
	return api.Holding{
		StockCode:    v.StockCode,
		StockName:    v.StockName,
		AveragePrice: v.AveragePrice,
		Quantity:     v.Quantity,
		CurrentPrice: v.CurrentPrice,
		MarketValue:  v.MarketValue(),
		CostBasis:    v.CostBasis(),
		UpdatedAt:    v.UpdatedAt,
	}
}

// ToHoldingList never returns a nil slice so it encodes as [].
func ToHoldingList(vs []model.HoldingView) *api.HoldingList {
	out := &api.HoldingList{Holdings: make([]api.Holding, 0, len(vs))}
	for _, v := range vs {
		out.Holdings = append(out.Holdings, ToHoldingView(v))
	}
	return out
}

// --- catalog ---

// ToStockList converts catalog search results.
func ToStockList(ss []model.Stock) *api.StockList {
	out := &api.StockList{Stocks: make([]api.Stock, 0, len(ss))}
	for _, s := range ss {
		out.Stocks = append(out.Stocks, api.Stock{Code: s.Code, Name: s.Name})
	}
	return out
}

// ToStockDetail converts a priced catalog entry.
func ToStockDetail(d model.StockDetail) *api.StockDetail {
	return &api.StockDetail{Code: d.Code, Name: d.Name, CurrentPrice: d.CurrentPrice}
}
