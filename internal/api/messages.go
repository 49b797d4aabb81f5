// Package api defines the stockfolio v1 wire messages shared by the REST and gRPC
// transports and the CLI, together with the gRPC service descriptors and clients.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Empty is used by calls without parameters or results.
type Empty struct{}

// SignupRequest registers an account.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Account is the public view of an account.
type Account struct {
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// VerifyRequest carries an emailed verification token.
type VerifyRequest struct {
	Token string `json:"token"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries the current refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Tokens is an issued access/refresh pair.
type Tokens struct {
	TokenType        string    `json:"token_type"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// PutHoldingRequest creates or replaces one holding.
type PutHoldingRequest struct {
	StockCode    string          `json:"stock_code"`
	StockName    string          `json:"stock_name"`
	AveragePrice decimal.Decimal `json:"average_price"`
	Quantity     int64           `json:"quantity"`
}

// DeleteHoldingRequest removes one holding.
type DeleteHoldingRequest struct {
	StockCode string `json:"stock_code"`
}

// Holding is a stock position with its live valuation.
// CurrentPrice is "0" when no quote was available.
type Holding struct {
	StockCode    string          `json:"stock_code"`
	StockName    string          `json:"stock_name"`
	AveragePrice decimal.Decimal `json:"average_price"`
	Quantity     int64           `json:"quantity"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HoldingList is the ledger of one account.
type HoldingList struct {
	Holdings []Holding `json:"holdings"`
}

// SearchRequest queries the stock catalog.
type SearchRequest struct {
	Query string `json:"query"`
}

// Stock is a catalog entry.
type Stock struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// StockList is a catalog search result.
type StockList struct {
	Stocks []Stock `json:"stocks"`
}

// DetailRequest asks for one stock.
type DetailRequest struct {
	Code string `json:"code"`
}

// StockDetail is a catalog entry with its current price.
type StockDetail struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// Error is the REST error body. Code is stable and machine-readable.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
