package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory is an in-process limiter for single-node deployments.
// Each key gets a token bucket of MaxFails tokens refilled over Window;
// a failure with an empty bucket locks the key for BlockFor.
// Keys that are unlocked with a full bucket carry no state and are swept.
type Memory struct {
	policy Policy
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*memEntry
	lastSweep time.Time
}

// sweepAt forces a sweep regardless of the interval once the map holds this many keys.
const sweepAt = 1 << 14

type memEntry struct {
	bucket       *rate.Limiter
	blockedUntil time.Time
}

func (e *memEntry) stale(now time.Time) bool {
	return !now.Before(e.blockedUntil) && e.bucket.TokensAt(now) >= float64(e.bucket.Burst())
}

// NewMemory constructs an in-memory limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{policy: p, now: time.Now, entries: make(map[string]*memEntry)}
}

// Allow reports whether the key is currently unlocked.
func (m *Memory) Allow(_ context.Context, k Key) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[k.String()]
	if !ok {
		return true, 0, nil
	}
	if left := e.blockedUntil.Sub(now); left > 0 {
		return false, left, nil
	}
	if e.stale(now) {
		delete(m.entries, k.String())
	}
	return true, 0, nil
}

// Success forgets the key.
func (m *Memory) Success(_ context.Context, k Key) error {
	m.mu.Lock()
	delete(m.entries, k.String())
	m.mu.Unlock()
	return nil
}

// Failure spends one token of the key's budget.
func (m *Memory) Failure(_ context.Context, k Key) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	e, ok := m.entries[k.String()]
	if !ok {
		every := m.policy.Window / time.Duration(max(m.policy.MaxFails, 1))
		// one token is reserved so the MaxFails-th failure finds the bucket empty
		e = &memEntry{bucket: rate.NewLimiter(rate.Every(every), max(m.policy.MaxFails-1, 0))}
		m.entries[k.String()] = e
	}
	if e.bucket.AllowN(now, 1) {
		return false, 0, nil
	}
	e.blockedUntil = now.Add(m.policy.BlockFor)
	return true, m.policy.BlockFor, nil
}

// sweep drops stale keys at most once per Window, or when the map grows past sweepAt.
// Callers hold m.mu.
func (m *Memory) sweep(now time.Time) {
	interval := m.policy.Window
	if interval <= 0 {
		interval = time.Minute
	}
	if now.Sub(m.lastSweep) < interval && len(m.entries) < sweepAt {
		return
	}
	m.lastSweep = now
	for k, e := range m.entries {
		if e.stale(now) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
