// Package limiter throttles login attempts per (username, client) pair with temporary lockouts.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login attempt may proceed and, if not, the remaining lockout.
	Allow(ctx context.Context, k Key) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, k Key) error
	// Failure records a failed attempt and reports whether the key is now locked.
	Failure(ctx context.Context, k Key) (bool, time.Duration, error)
}

// Key identifies the attempting party. The client address is only kept hashed.
type Key struct {
	Username   string
	ClientHash []byte
}

// KeyFor builds a Key from a username and the client address.
func KeyFor(username, clientIP string) Key {
	return Key{Username: username, ClientHash: HashIP(clientIP)}
}

func (k Key) String() string { return k.Username + "\x00" + string(k.ClientHash) }

// Policy sets the failure budget: MaxFails failures within Window lock the key for BlockFor.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// DefaultPolicy is 5 failures per 15 minutes, 15 minute lockout.
var DefaultPolicy = Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}
