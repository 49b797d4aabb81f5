package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/limiter"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository"
)

// fakeAccounts is an in-memory AccountRepository with the same conditional-update semantics as the SQL stores.
type fakeAccounts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.Account

	getErr    error // returned by GetByUsername
	createErr error // returned by Create after the uniqueness check passes
	swapErr   error // forced SwapRefreshToken result
	markErr   error // forced MarkEmailVerified result

	deleted []int64
}

var _ repository.AccountRepository = (*fakeAccounts)(nil)

func newFakeAccounts() *fakeAccounts { return &fakeAccounts{byID: map[int64]*model.Account{}} }

func (f *fakeAccounts) find(match func(*model.Account) bool) (*model.Account, error) {
	for _, a := range f.byID {
		if match(a) {
			c := *a
			return &c, nil
		}
	}
	return nil, errs.ErrAccountNotFound
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if x.Username == a.Username {
			return errs.ErrDuplicateUsername
		}
		if x.Email == a.Email {
			return errs.ErrDuplicateEmail
		}
	}
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = time.Now()
	c := *a
	f.byID[a.ID] = &c
	return nil
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.find(func(a *model.Account) bool { return a.Username == username })
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(a *model.Account) bool { return a.Email == email })
}

func (f *fakeAccounts) GetByVerificationToken(_ context.Context, token string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(a *model.Account) bool { return token != "" && a.EmailVerificationToken == token })
}

func (f *fakeAccounts) SetRefreshToken(_ context.Context, id int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return errs.ErrAccountNotFound
	}
	a.RefreshToken = token
	return nil
}

func (f *fakeAccounts) SwapRefreshToken(_ context.Context, id int64, old, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.swapErr != nil {
		return f.swapErr
	}
	a, ok := f.byID[id]
	if !ok || a.RefreshToken != old {
		return errs.ErrVersionConflict
	}
	a.RefreshToken = next
	return nil
}

func (f *fakeAccounts) MarkEmailVerified(_ context.Context, id int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	a, ok := f.byID[id]
	if !ok || token == "" || a.EmailVerificationToken != token {
		return errs.ErrVersionConflict
	}
	a.EmailVerified = true
	a.EmailVerificationToken = ""
	return nil
}

func (f *fakeAccounts) SetPasswordHash(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return errs.ErrAccountNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeAccounts) DeleteUnverified(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.EmailVerified {
		return errs.ErrVersionConflict
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAccounts) get(username string) *model.Account {
	a, _ := f.GetByUsername(context.Background(), username)
	return a
}

// fakeNotifier records sent tokens.
type fakeNotifier struct {
	mu   sync.Mutex
	sent map[string]string // email -> token
	err  error
}

func (n *fakeNotifier) SendVerification(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.sent == nil {
		n.sent = map[string]string{}
	}
	n.sent[email] = token
	return nil
}

func (n *fakeNotifier) tokenFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[email]
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failLocked bool
	failErr    error

	allowCalls   int
	failureCalls int
	successCalls int
	lastKey      limiter.Key
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, k limiter.Key) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastKey = k
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, limiter.Key) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, limiter.Key) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failLocked, 0, l.failErr
}

// fakeHoldings is an in-memory HoldingRepository.
type fakeHoldings struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]map[string]model.Holding
}

var _ repository.HoldingRepository = (*fakeHoldings)(nil)

func newFakeHoldings() *fakeHoldings {
	return &fakeHoldings{rows: map[int64]map[string]model.Holding{}}
}

func (f *fakeHoldings) List(_ context.Context, accountID int64) ([]model.Holding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Holding
	for _, h := range f.rows[accountID] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockCode < out[j].StockCode })
	return out, nil
}

func (f *fakeHoldings) Upsert(_ context.Context, h *model.Holding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.rows[h.AccountID]
	if m == nil {
		m = map[string]model.Holding{}
		f.rows[h.AccountID] = m
	}
	if prev, ok := m[h.StockCode]; ok {
		h.ID = prev.ID
	} else {
		f.nextID++
		h.ID = f.nextID
	}
	h.UpdatedAt = time.Now()
	m[h.StockCode] = *h
	return nil
}

func (f *fakeHoldings) Delete(_ context.Context, accountID int64, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[accountID][code]; !ok {
		return errs.ErrNotFound
	}
	delete(f.rows[accountID], code)
	return nil
}

// fakePrices returns fixed prices; unknown symbols get zero.
type fakePrices struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	calls  int
}

func (p *fakePrices) CurrentPrice(_ context.Context, symbol string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if v, ok := p.prices[symbol]; ok {
		return v
	}
	return decimal.Zero
}
