package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	pkgcrypto "github.com/and161185/stockfolio/internal/crypto"
	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
)

func TestSignup_StoresUnverifiedAccountAndSendsToken(t *testing.T) {
	f := newAuth(t)
	ctx := context.Background()

	a, err := f.svc.Signup(ctx, model.Signup{Username: " alice ", Password: "pw123", Name: "Alice", Email: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, "alice", a.Username)
	require.NotZero(t, a.ID)
	require.False(t, a.EmailVerified)
	require.Len(t, a.EmailVerificationToken, 64)
	require.Equal(t, a.EmailVerificationToken, f.notifier.tokenFor("a@x.com"))

	stored := f.accounts.get("alice")
	require.NotEqual(t, "pw123", stored.PasswordHash)
	ok, err := pkgcrypto.VerifyPassword("pw123", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, stored.RefreshToken)
}

func TestSignup_Validation(t *testing.T) {
	cases := map[string]model.Signup{
		"no username":   {Password: "p", Email: "a@x.com"},
		"blank":         {Username: "   ", Password: "p", Email: "a@x.com"},
		"no password":   {Username: "u", Email: "a@x.com"},
		"no email":      {Username: "u", Password: "p"},
		"bad email":     {Username: "u", Password: "p", Email: "not-an-email"},
		"display email": {Username: "u", Password: "p", Email: "Bob <b@x.com>"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			f := newAuth(t)
			_, err := f.svc.Signup(context.Background(), in)
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
			require.Empty(t, f.notifier.sent)
		})
	}
}

func TestSignup_Duplicates(t *testing.T) {
	f := newAuth(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, model.Signup{Username: "alice", Password: "p", Email: "a@x.com"})
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, model.Signup{Username: "alice", Password: "p", Email: "other@x.com"})
	require.ErrorIs(t, err, errs.ErrDuplicateUsername)

	_, err = f.svc.Signup(ctx, model.Signup{Username: "alicia", Password: "p", Email: "a@x.com"})
	require.ErrorIs(t, err, errs.ErrDuplicateEmail)
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestSignup_StoreRaceReportsConflict(t *testing.T) {
	f := newAuth(t)
	// the lookup sees nothing but the insert loses to a concurrent signup
	f.accounts.createErr = errs.ErrDuplicateUsername
	_, err := f.svc.Signup(context.Background(), model.Signup{Username: "bob", Password: "p", Email: "b@x.com"})
	require.ErrorIs(t, err, errs.ErrDuplicateUsername)
	require.Empty(t, f.notifier.sent)
}

func TestSignup_NotifyFailurePolicies(t *testing.T) {
	boom := errors.New("smtp down")
	in := model.Signup{Username: "carl", Password: "p", Email: "c@x.com"}

	t.Run("propagate keeps the account", func(t *testing.T) {
		f := newAuth(t)
		f.notifier.err = boom
		a, err := f.svc.Signup(context.Background(), in)
		require.Nil(t, a)
		require.ErrorIs(t, err, errs.ErrExternalUnavailable)
		require.ErrorIs(t, err, boom)
		require.NotNil(t, f.accounts.get("carl"))

		// retrying finds the username taken
		f.notifier.err = nil
		_, err = f.svc.Signup(context.Background(), in)
		require.ErrorIs(t, err, errs.ErrDuplicateUsername)
	})

	t.Run("rollback deletes the account", func(t *testing.T) {
		f := newAuth(t, WithNotifyFailurePolicy(NotifyRollback))
		f.notifier.err = boom
		_, err := f.svc.Signup(context.Background(), in)
		require.ErrorIs(t, err, errs.ErrExternalUnavailable)
		require.Nil(t, f.accounts.get("carl"))
		require.Len(t, f.accounts.deleted, 1)

		f.notifier.err = nil
		_, err = f.svc.Signup(context.Background(), in)
		require.NoError(t, err)
	})

	t.Run("ignore logs and succeeds", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		f := newAuth(t, WithNotifyFailurePolicy(NotifyIgnore), WithLogger(zap.New(core)))
		f.notifier.err = boom
		a, err := f.svc.Signup(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, "carl", a.Username)
		require.Equal(t, 1, logs.FilterMessage("verification message not sent").Len())
	})
}

func TestParseNotifyFailurePolicy(t *testing.T) {
	for _, s := range []string{"propagate", "rollback", "ignore"} {
		p, err := ParseNotifyFailurePolicy(s)
		require.NoError(t, err)
		require.Equal(t, NotifyFailurePolicy(s), p)
	}
	_, err := ParseNotifyFailurePolicy("retry")
	require.Error(t, err)
}

func TestVerifyEmail_OnceOnly(t *testing.T) {
	f := newAuth(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, model.Signup{Username: "dora", Password: "p", Email: "d@x.com"})
	require.NoError(t, err)
	tok := f.notifier.tokenFor("d@x.com")

	require.NoError(t, f.svc.VerifyEmail(ctx, tok))
	a := f.accounts.get("dora")
	require.True(t, a.EmailVerified)
	require.Empty(t, a.EmailVerificationToken)

	require.ErrorIs(t, f.svc.VerifyEmail(ctx, tok), errs.ErrInvalidVerificationToken)
	require.ErrorIs(t, f.svc.VerifyEmail(ctx, ""), errs.ErrInvalidVerificationToken)
	require.ErrorIs(t, f.svc.VerifyEmail(ctx, "nope"), errs.ErrInvalidVerificationToken)
}

func TestVerifyEmail_LostRace(t *testing.T) {
	f := newAuth(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, model.Signup{Username: "eve", Password: "p", Email: "e@x.com"})
	require.NoError(t, err)

	f.accounts.markErr = errs.ErrVersionConflict
	require.ErrorIs(t, f.svc.VerifyEmail(ctx, f.notifier.tokenFor("e@x.com")), errs.ErrInvalidVerificationToken)

	f.accounts.markErr = errors.New("io")
	err = f.svc.VerifyEmail(ctx, f.notifier.tokenFor("e@x.com"))
	require.Error(t, err)
	require.False(t, errors.Is(err, errs.ErrUnauthorized))
}
