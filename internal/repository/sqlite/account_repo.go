package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

// AccountRepo implements AccountRepository on SQLite.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `id, username, password, name, email, email_verified, email_verification_token, refresh_token, created_at`

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO users (username, password, name, email, email_verified, email_verification_token, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	created := r.db.nowMillis()
	res, err := r.db.SQL.ExecContext(ctx, q, a.Username, a.PasswordHash, a.Name, a.Email,
		a.EmailVerified, a.EmailVerificationToken, created)
	if err != nil {
		return accountConflict(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = fromMillis(created)
	return nil
}

// GetByUsername loads an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE username = ?`, username)
}

// GetByEmail loads an account by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email = ?`, email)
}

// GetByVerificationToken loads the account holding a pending verification token.
func (r *AccountRepo) GetByVerificationToken(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, errs.ErrAccountNotFound
	}
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email_verification_token = ?`, token)
}

func (r *AccountRepo) getOne(ctx context.Context, q string, arg any) (*model.Account, error) {
	var (
		a       model.Account
		created int64
	)
	err := r.db.SQL.QueryRowContext(ctx, q, arg).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Name, &a.Email,
		&a.EmailVerified, &a.EmailVerificationToken, &a.RefreshToken, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrAccountNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

// SetRefreshToken overwrites the stored refresh token.
func (r *AccountRepo) SetRefreshToken(ctx context.Context, id int64, token string) error {
	return r.update(ctx, errs.ErrAccountNotFound,
		`UPDATE users SET refresh_token = ? WHERE id = ?`, token, id)
}

// SwapRefreshToken updates refresh_token only if it still equals old.
func (r *AccountRepo) SwapRefreshToken(ctx context.Context, id int64, old, next string) error {
	return r.update(ctx, errs.ErrVersionConflict,
		`UPDATE users SET refresh_token = ? WHERE id = ? AND refresh_token = ?`, next, id, old)
}

// MarkEmailVerified clears the verification token if it is still pending.
func (r *AccountRepo) MarkEmailVerified(ctx context.Context, id int64, token string) error {
	return r.update(ctx, errs.ErrVersionConflict, `
UPDATE users SET email_verified = 1, email_verification_token = ''
WHERE id = ? AND email_verification_token = ? AND email_verification_token <> ''`, id, token)
}

// SetPasswordHash replaces the password hash.
func (r *AccountRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	return r.update(ctx, errs.ErrAccountNotFound,
		`UPDATE users SET password = ? WHERE id = ?`, hash, id)
}

// DeleteUnverified removes an account that never verified its email.
func (r *AccountRepo) DeleteUnverified(ctx context.Context, id int64) error {
	return r.update(ctx, errs.ErrVersionConflict,
		`DELETE FROM users WHERE id = ? AND email_verified = 0`, id)
}

// update runs a single-row statement and returns none if no row matched.
func (r *AccountRepo) update(ctx context.Context, none error, q string, args ...any) error {
	res, err := r.db.SQL.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}
