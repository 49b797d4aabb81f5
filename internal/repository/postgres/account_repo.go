package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `id, username, password, name, email, email_verified, email_verification_token, refresh_token, created_at`

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO users (username, password, name, email, email_verified, email_verification_token)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`
	err := r.db.Pool.QueryRow(ctx, q, a.Username, a.PasswordHash, a.Name, a.Email, a.EmailVerified, a.EmailVerificationToken).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return accountConflict(err)
	}
	return nil
}

// GetByUsername selects an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE username=$1`, username)
}

// GetByEmail selects an account by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email=$1`, email)
}

// GetByVerificationToken selects the account with a pending verification token.
func (r *AccountRepo) GetByVerificationToken(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, errs.ErrAccountNotFound
	}
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email_verification_token=$1`, token)
}

func (r *AccountRepo) getOne(ctx context.Context, q string, arg any) (*model.Account, error) {
	var a model.Account
	err := r.db.Pool.QueryRow(ctx, q, arg).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Name, &a.Email,
		&a.EmailVerified, &a.EmailVerificationToken, &a.RefreshToken, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrAccountNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	return &a, nil
}

// SetRefreshToken overwrites the stored refresh token.
func (r *AccountRepo) SetRefreshToken(ctx context.Context, id int64, token string) error {
	const q = `UPDATE users SET refresh_token = $2 WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrAccountNotFound
	}
	return nil
}

// SwapRefreshToken updates refresh_token only if it still equals old.
func (r *AccountRepo) SwapRefreshToken(ctx context.Context, id int64, old, next string) error {
	const q = `UPDATE users SET refresh_token = $3 WHERE id = $1 AND refresh_token = $2`
	tag, err := r.db.Pool.Exec(ctx, q, id, old, next)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// MarkEmailVerified clears the verification token if it is still pending.
func (r *AccountRepo) MarkEmailVerified(ctx context.Context, id int64, token string) error {
	const q = `
UPDATE users
SET email_verified = TRUE, email_verification_token = ''
WHERE id = $1 AND email_verification_token = $2 AND email_verification_token <> ''`
	tag, err := r.db.Pool.Exec(ctx, q, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// SetPasswordHash replaces the password hash.
func (r *AccountRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	const q = `UPDATE users SET password = $2 WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrAccountNotFound
	}
	return nil
}

// DeleteUnverified removes an account that never verified its email.
func (r *AccountRepo) DeleteUnverified(ctx context.Context, id int64) error {
	const q = `DELETE FROM users WHERE id = $1 AND NOT email_verified`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}
