// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Transports map these, not the specific errors below.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExternalUnavailable indicates a downstream dependency (mail, quotes) failed.
	ErrExternalUnavailable = errors.New("external dependency unavailable")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrVersionConflict indicates a lost compare-and-swap on stored state.
	ErrVersionConflict = errors.New("version conflict")
)

// Specific errors. Each wraps exactly one kind.
var (
	ErrAccountNotFound = fmt.Errorf("account not found: %w", ErrNotFound)

	ErrDuplicateUsername = fmt.Errorf("duplicate username: %w", ErrConflict)
	ErrDuplicateEmail    = fmt.Errorf("duplicate email: %w", ErrConflict)

	ErrBadCredentials           = fmt.Errorf("bad credentials: %w", ErrUnauthorized)
	ErrEmailNotVerified         = fmt.Errorf("email not verified: %w", ErrUnauthorized)
	ErrInvalidToken             = fmt.Errorf("invalid token: %w", ErrUnauthorized)
	ErrTokenRevoked             = fmt.Errorf("token revoked: %w", ErrUnauthorized)
	ErrInvalidVerificationToken = fmt.Errorf("invalid verification token: %w", ErrUnauthorized)
)

// codes lists the specific errors first so the most precise code wins.
var codes = []struct {
	err  error
	code string
}{
	{ErrAccountNotFound, "account_not_found"},
	{ErrDuplicateUsername, "duplicate_username"},
	{ErrDuplicateEmail, "duplicate_email"},
	{ErrBadCredentials, "bad_credentials"},
	{ErrEmailNotVerified, "email_not_verified"},
	{ErrInvalidToken, "invalid_token"},
	{ErrTokenRevoked, "token_revoked"},
	{ErrInvalidVerificationToken, "invalid_verification_token"},
	{ErrRateLimited, "rate_limited"},
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrConflict, "conflict"},
	{ErrUnauthorized, "unauthorized"},
	{ErrExternalUnavailable, "external_unavailable"},
	{ErrVersionConflict, "version_conflict"},
}

// Code returns a stable machine-readable code for err, or "internal".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
