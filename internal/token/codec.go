// Package token issues and validates the signed bearer tokens handed to clients.
//
// Tokens are HS256 JWTs carrying a subject (the username), an expiry and a random
// token id. The token kind is not encoded: access tokens are only ever checked by
// signature and expiry, refresh tokens are additionally compared against the value
// stored on the account by the session layer.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/stockfolio/internal/errs"
)

// Validation failures. All of them wrap errs.ErrInvalidToken.
var (
	ErrMalformed        = fmt.Errorf("malformed: %w", errs.ErrInvalidToken)
	ErrInvalidSignature = fmt.Errorf("invalid signature: %w", errs.ErrInvalidToken)
	ErrExpired          = fmt.Errorf("expired: %w", errs.ErrInvalidToken)
)

// Kind tells which code path a token is minted for.
type Kind int

const (
	Access Kind = iota
	Refresh
)

func (k Kind) String() string {
	if k == Refresh {
		return "refresh"
	}
	return "access"
}

// Issued is a freshly minted token.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Codec signs and validates tokens with a server-held HMAC key.
// It is immutable after construction and safe for concurrent use.
type Codec struct {
	key    []byte
	leeway time.Duration
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithLeeway tolerates clock skew when checking expiry.
func WithLeeway(d time.Duration) Option { return func(c *Codec) { c.leeway = d } }

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option { return func(c *Codec) { c.now = now } }

// NewCodec constructs a Codec. key must not be empty.
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if len(key) == 0 {
		return nil, errors.New("token: empty signing key")
	}
	c := &Codec{key: append([]byte(nil), key...), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Issue creates a signed token for subject valid for ttl.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (Issued, error) {
	if subject == "" {
		return Issued{}, errors.New("token: empty subject")
	}
	jti, err := uuid.NewV4()
	if err != nil {
		return Issued{}, err
	}
	now := c.now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return Issued{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return Issued{Token: signed, ExpiresAt: exp}, nil
}

// Validate verifies signature and expiry and returns the subject.
// It performs no store lookup.
func (c *Codec) Validate(tok string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", classify(err)
	}
	if claims.Subject == "" {
		return "", ErrMalformed
	}
	return claims.Subject, nil
}

// ExtractSubject reads the subject without verifying the token.
// Callers must re-validate before trusting anything derived from it.
func (c *Codec) ExtractSubject(tok string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return "", ErrMalformed
	}
	if claims.Subject == "" {
		return "", ErrMalformed
	}
	return claims.Subject, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
