package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/stockfolio/internal/crypto"
	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

// Signup registers an unverified account and dispatches its verification link.
func (s *AuthServiceImpl) Signup(ctx context.Context, in model.Signup) (*model.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateSignup(in); err != nil {
		return nil, err
	}

	// Fast path for a friendly error; the store's unique constraints are authoritative.
	if err := s.ensureFree(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := pkgcrypto.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	verifyToken, err := pkgcrypto.RandToken()
	if err != nil {
		return nil, err
	}
	a := &model.Account{
		Username:               in.Username,
		PasswordHash:           hash,
		Name:                   in.Name,
		Email:                  in.Email,
		EmailVerified:          false,
		EmailVerificationToken: verifyToken,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}

	if err := s.notifier.SendVerification(ctx, a.Email, verifyToken); err != nil {
		return s.onNotifyFailure(ctx, a, err)
	}
	return a, nil
}

func (s *AuthServiceImpl) onNotifyFailure(ctx context.Context, a *model.Account, cause error) (*model.Account, error) {
	err := fmt.Errorf("send verification: %w: %w", errs.ErrExternalUnavailable, cause)
	switch s.notifyPolicy {
	case NotifyIgnore:
		s.log.Warn("verification message not sent", zap.String("username", a.Username), zap.Error(cause))
		return a, nil
	case NotifyRollback:
		if derr := s.accounts.DeleteUnverified(ctx, a.ID); derr != nil {
			s.log.Error("signup rollback failed", zap.String("username", a.Username), zap.Error(derr))
		}
		return nil, err
	default:
		s.log.Warn("verification message not sent, account kept", zap.String("username", a.Username), zap.Error(cause))
		return nil, err
	}
}

func (s *AuthServiceImpl) ensureFree(ctx context.Context, username, email string) error {
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return errs.ErrDuplicateUsername
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return errs.ErrDuplicateEmail
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return nil
}

func validateSignup(in model.Signup) error {
	switch {
	case in.Username == "":
		return fmt.Errorf("username is required: %w", errs.ErrValidation)
	case in.Password == "":
		return fmt.Errorf("password is required: %w", errs.ErrValidation)
	case in.Email == "":
		return fmt.Errorf("email is required: %w", errs.ErrValidation)
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return fmt.Errorf("email %q is not a plain address: %w", in.Email, errs.ErrValidation)
	}
	return nil
}

// VerifyEmail marks the account holding token as verified. A token works once.
func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, verifyToken string) error {
	if verifyToken == "" {
		return errs.ErrInvalidVerificationToken
	}
	a, err := s.accounts.GetByVerificationToken(ctx, verifyToken)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrInvalidVerificationToken
		}
		return err
	}
	if err := s.accounts.MarkEmailVerified(ctx, a.ID, verifyToken); err != nil {
		if errors.Is(err, errs.ErrVersionConflict) {
			return errs.ErrInvalidVerificationToken
		}
		return err
	}
	s.log.Info("email verified", zap.String("username", a.Username))
	return nil
}
