// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/stockfolio/internal/model"
)

// AccountRepository persists accounts and their session/verification state.
//
// Lookups return errs.ErrAccountNotFound when nothing matches. State transitions are
// narrow, conditional updates; a condition that no longer holds yields errs.ErrVersionConflict.
type AccountRepository interface {
	// Create inserts a new account and sets a.ID and a.CreatedAt.
	// Returns errs.ErrDuplicateUsername or errs.ErrDuplicateEmail on uniqueness violations.
	Create(ctx context.Context, a *model.Account) error
	// GetByUsername loads an account by username.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	// GetByEmail loads an account by email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// GetByVerificationToken loads the account holding a pending verification token.
	GetByVerificationToken(ctx context.Context, token string) (*model.Account, error)
	// SetRefreshToken overwrites the stored refresh token. Empty clears it.
	SetRefreshToken(ctx context.Context, id int64, token string) error
	// SwapRefreshToken replaces old with next only if old is still the stored value.
	SwapRefreshToken(ctx context.Context, id int64, old, next string) error
	// MarkEmailVerified clears token and sets the verified flag only if token is still pending.
	MarkEmailVerified(ctx context.Context, id int64, token string) error
	// SetPasswordHash replaces the stored password hash.
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	// DeleteUnverified removes an account that has not verified its email yet.
	DeleteUnverified(ctx context.Context, id int64) error
}
