// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a registered user. PasswordHash never leaves the server.
type Account struct {
	ID                     int64  // PK, assigned by the store
	Username               string // unique, immutable
	PasswordHash           string // encoded argon2id (or legacy bcrypt) hash
	Name                   string
	Email                  string // unique
	EmailVerified          bool
	EmailVerificationToken string // empty once verified
	RefreshToken           string // current refresh token, empty if none
	CreatedAt              time.Time
}

// Signup is the input of account registration.
type Signup struct {
	Username string
	Password string
	Name     string
	Email    string
}

// Tokens is an issued access/refresh pair.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Holding is one stock position of an account.
type Holding struct {
	ID           int64
	AccountID    int64 // FK -> users.id
	StockCode    string
	StockName    string
	AveragePrice decimal.Decimal
	Quantity     int64
	UpdatedAt    time.Time
}

// HoldingView is a holding enriched with a live quote.
// CurrentPrice is zero when no quote was available.
type HoldingView struct {
	Holding
	CurrentPrice decimal.Decimal
}

// MarketValue returns quantity * current price.
func (h HoldingView) MarketValue() decimal.Decimal {
	return h.CurrentPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// CostBasis returns quantity * average price.
func (h HoldingView) CostBasis() decimal.Decimal {
	return h.AveragePrice.Mul(decimal.NewFromInt(h.Quantity))
}

// Stock is a catalog entry.
type Stock struct {
	Code string
	Name string
}

// StockDetail is a catalog entry with its current price.
type StockDetail struct {
	Stock
	CurrentPrice decimal.Decimal
}
