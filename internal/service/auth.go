// Package service contains application services for accounts, sessions and holdings.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/limiter"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/notify"
	"github.com/and161185/stockfolio/internal/repository"
	"github.com/and161185/stockfolio/internal/token"
)

// AuthService defines registration and session operations.
type AuthService interface {
	// Signup registers an unverified account and sends its verification link.
	Signup(ctx context.Context, in model.Signup) (*model.Account, error)
	// VerifyEmail activates the account holding token.
	VerifyEmail(ctx context.Context, token string) error
	// Login checks credentials and issues a token pair; clientIP feeds the rate limiter.
	Login(ctx context.Context, username, password, clientIP string) (model.Tokens, error)
	// Refresh rotates a refresh token into a new pair.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// CurrentSubject resolves an access token to its username without a store lookup.
	CurrentSubject(accessToken string) (string, error)
	// Me loads the account of subject.
	Me(ctx context.Context, subject string) (*model.Account, error)
	// Logout revokes the stored refresh token of subject.
	Logout(ctx context.Context, subject string) error
}

// NotifyFailurePolicy decides what Signup does when the verification message cannot be sent.
type NotifyFailurePolicy string

const (
	// NotifyPropagate keeps the account and returns the error.
	NotifyPropagate NotifyFailurePolicy = "propagate"
	// NotifyRollback deletes the unverified account and returns the error.
	NotifyRollback NotifyFailurePolicy = "rollback"
	// NotifyIgnore logs the failure and reports success.
	NotifyIgnore NotifyFailurePolicy = "ignore"
)

// ParseNotifyFailurePolicy validates s.
func ParseNotifyFailurePolicy(s string) (NotifyFailurePolicy, error) {
	switch p := NotifyFailurePolicy(s); p {
	case NotifyPropagate, NotifyRollback, NotifyIgnore:
		return p, nil
	default:
		return "", fmt.Errorf("unknown notify failure policy %q", s)
	}
}

// Default token lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 14 * 24 * time.Hour
)

// AuthServiceImpl implements AuthService.
type AuthServiceImpl struct {
	accounts repository.AccountRepository
	codec    *token.Codec
	notifier notify.Notifier

	lim          limiter.Limiter
	accessTTL    time.Duration
	refreshTTL   time.Duration
	notifyPolicy NotifyFailurePolicy
	log          *zap.Logger
}

// AuthOption configures AuthServiceImpl.
type AuthOption func(*AuthServiceImpl)

// WithLimiter enables login rate limiting.
func WithLimiter(l limiter.Limiter) AuthOption { return func(s *AuthServiceImpl) { s.lim = l } }

// WithTokenTTL overrides token lifetimes.
func WithTokenTTL(access, refresh time.Duration) AuthOption {
	return func(s *AuthServiceImpl) { s.accessTTL, s.refreshTTL = access, refresh }
}

// WithNotifyFailurePolicy sets the Signup notification failure policy.
func WithNotifyFailurePolicy(p NotifyFailurePolicy) AuthOption {
	return func(s *AuthServiceImpl) { s.notifyPolicy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) AuthOption { return func(s *AuthServiceImpl) { s.log = l } }

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(accounts repository.AccountRepository, codec *token.Codec, notifier notify.Notifier, opts ...AuthOption) *AuthServiceImpl {
	s := &AuthServiceImpl{
		accounts:     accounts,
		codec:        codec,
		notifier:     notifier,
		accessTTL:    DefaultAccessTTL,
		refreshTTL:   DefaultRefreshTTL,
		notifyPolicy: NotifyPropagate,
		log:          zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
