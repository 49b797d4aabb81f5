package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/stockfolio/internal/crypto"
	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/limiter"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/token"
)

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnHashTime runs one password verification against a fixed hash so that unknown
// usernames cost about as much as wrong passwords.
func burnHashTime(password string) {
	dummyOnce.Do(func() { dummyHash, _ = pkgcrypto.HashPassword("stockfolio-dummy") })
	_, _ = pkgcrypto.VerifyPassword(password, dummyHash)
}

// Login authenticates with rate limiting by (username, client).
// The username is trimmed the same way Signup stores it.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, clientIP string) (model.Tokens, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.Tokens{}, fmt.Errorf("username and password are required: %w", errs.ErrValidation)
	}
	key := limiter.KeyFor(username, clientIP)
	if s.lim != nil {
		allowed, _, err := s.lim.Allow(ctx, key)
		if err != nil {
			return model.Tokens{}, err
		}
		if !allowed {
			return model.Tokens{}, errs.ErrRateLimited
		}
	}

	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			burnHashTime(password)
			return model.Tokens{}, s.failLogin(ctx, key, errs.ErrAccountNotFound)
		}
		return model.Tokens{}, err
	}
	ok, err := pkgcrypto.VerifyPassword(password, a.PasswordHash)
	if err != nil {
		s.log.Error("stored password hash unreadable", zap.String("username", username), zap.Error(err))
	}
	if !ok {
		return model.Tokens{}, s.failLogin(ctx, key, errs.ErrBadCredentials)
	}
	if !a.EmailVerified {
		return model.Tokens{}, errs.ErrEmailNotVerified
	}

	pair, err := s.issuePair(a.Username)
	if err != nil {
		return model.Tokens{}, err
	}
	if err := s.accounts.SetRefreshToken(ctx, a.ID, pair.RefreshToken); err != nil {
		return model.Tokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	if s.lim != nil {
		if err := s.lim.Success(ctx, key); err != nil {
			s.log.Warn("limiter reset failed", zap.Error(err))
		}
	}
	if pkgcrypto.NeedsRehash(a.PasswordHash) {
		s.rehash(ctx, a.ID, password)
	}
	return pair, nil
}

// failLogin records a failed attempt and returns cause, or ErrRateLimited if the key got locked.
func (s *AuthServiceImpl) failLogin(ctx context.Context, key limiter.Key, cause error) error {
	if s.lim == nil {
		return cause
	}
	locked, _, err := s.lim.Failure(ctx, key)
	if err != nil {
		s.log.Warn("limiter failure record failed", zap.Error(err))
		return cause
	}
	if locked {
		return errs.ErrRateLimited
	}
	return cause
}

func (s *AuthServiceImpl) rehash(ctx context.Context, id int64, password string) {
	h, err := pkgcrypto.HashPassword(password)
	if err == nil {
		err = s.accounts.SetPasswordHash(ctx, id, h)
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.Int64("account_id", id), zap.Error(err))
	}
}

// Refresh validates the presented refresh token against the stored one and rotates it.
func (s *AuthServiceImpl) Refresh(ctx context.Context, presented string) (model.Tokens, error) {
	subject, err := s.codec.Validate(presented)
	if err != nil {
		return model.Tokens{}, fmt.Errorf("refresh: %w", err)
	}
	a, err := s.accounts.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, errs.ErrAccountNotFound
		}
		return model.Tokens{}, err
	}
	if a.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(a.RefreshToken)) != 1 {
		return model.Tokens{}, errs.ErrTokenRevoked
	}

	pair, err := s.issuePair(a.Username)
	if err != nil {
		return model.Tokens{}, err
	}
	if err := s.accounts.SwapRefreshToken(ctx, a.ID, a.RefreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, errs.ErrVersionConflict) {
			// a concurrent refresh or login rotated the token first
			return model.Tokens{}, errs.ErrTokenRevoked
		}
		return model.Tokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	return pair, nil
}

// CurrentSubject validates an access token. Access tokens are not checked against the store.
func (s *AuthServiceImpl) CurrentSubject(accessToken string) (string, error) {
	return s.codec.Validate(accessToken)
}

// Me returns the account of subject.
func (s *AuthServiceImpl) Me(ctx context.Context, subject string) (*model.Account, error) {
	a, err := s.accounts.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

// Logout clears the stored refresh token. Outstanding access tokens stay valid until expiry.
func (s *AuthServiceImpl) Logout(ctx context.Context, subject string) error {
	a, err := s.Me(ctx, subject)
	if err != nil {
		return err
	}
	return s.accounts.SetRefreshToken(ctx, a.ID, "")
}

func (s *AuthServiceImpl) issuePair(subject string) (model.Tokens, error) {
	access, err := s.codec.Issue(subject, token.Access, s.accessTTL)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, err := s.codec.Issue(subject, token.Refresh, s.refreshTTL)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}
