package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/gatehouselabs/gatehouse/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func newUser(t *testing.T, st store.Store, username string) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: "argon2:x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC()

	t.Run("create and fetch", func(t *testing.T) {
		u := newUser(t, st, "alice")

		byID, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", byID.Username)

		byName, err := st.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, u.ID, byName.ID)

		_, err = st.Users().GetUserByUsername(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		newUser(t, st, "bob")
		dup := domain.User{ID: idx.New().String(), Username: "bob", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
		require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("failure counter", func(t *testing.T) {
		u := newUser(t, st, "carol")

		n, err := st.Users().IncrementFailures(ctx, u.ID, now)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		n, err = st.Users().IncrementFailures(ctx, u.ID, now)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		require.NoError(t, st.Users().ResetFailures(ctx, u.ID, now))
		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Zero(t, got.FailedAttempts)

		_, err = st.Users().IncrementFailures(ctx, "missing", now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("lockout and MFA columns", func(t *testing.T) {
		u := newUser(t, st, "dave")

		until := now.Add(5 * time.Minute)
		require.NoError(t, st.Users().SetLockout(ctx, u.ID, until, now))
		require.NoError(t, st.Users().SetTOTPSecret(ctx, u.ID, "JBSWY3DPEHPK3PXP", now))
		require.NoError(t, st.Users().EnableMFA(ctx, u.ID, now))

		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LockedUntil)
		require.WithinDuration(t, until, *got.LockedUntil, time.Second)
		require.True(t, got.MFAEnabled)
		require.NotNil(t, got.TOTPSecret)
		require.Equal(t, "JBSWY3DPEHPK3PXP", *got.TOTPSecret)
	})

	t.Run("is empty", func(t *testing.T) {
		fresh := newStore(t)
		empty, err := fresh.Users().IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)

		newUser(t, fresh, "eve")
		empty, err = fresh.Users().IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})
}

func TestSessionsRepo(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC()
	user := newUser(t, st, "alice")

	newSess := func(expires time.Time) domain.LoginSession {
		s := domain.LoginSession{
			ID:        idx.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: expires,
		}
		require.NoError(t, st.Sessions().CreateSession(ctx, s))
		return s
	}

	t.Run("captcha code round trip", func(t *testing.T) {
		s := newSess(now.Add(time.Hour))

		require.NoError(t, st.Sessions().SetCaptchaCode(ctx, s.ID, "ABCDE", now))
		got, err := st.Sessions().GetSessionByID(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CaptchaCode)
		require.Equal(t, "ABCDE", *got.CaptchaCode)

		// Empty code clears the column.
		require.NoError(t, st.Sessions().SetCaptchaCode(ctx, s.ID, "", now))
		got, err = st.Sessions().GetSessionByID(ctx, s.ID)
		require.NoError(t, err)
		require.Nil(t, got.CaptchaCode)
	})

	t.Run("promote pending user", func(t *testing.T) {
		s := domain.LoginSession{
			ID:            idx.New().String(),
			PendingUserID: &user.ID,
			MFAAttempts:   2,
			CreatedAt:     now,
			UpdatedAt:     now,
			ExpiresAt:     now.Add(time.Hour),
		}
		require.NoError(t, st.Sessions().CreateSession(ctx, s))

		require.NoError(t, st.Sessions().PromotePendingUser(ctx, s.ID, now))
		got, err := st.Sessions().GetSessionByID(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got.UserID)
		require.Equal(t, user.ID, *got.UserID)
		require.Nil(t, got.PendingUserID)
		require.Zero(t, got.MFAAttempts)

		// Promoting a session with no pending identity is a no-op.
		require.NoError(t, st.Sessions().PromotePendingUser(ctx, s.ID, now))
		again, err := st.Sessions().GetSessionByID(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, user.ID, *again.UserID)
	})

	t.Run("mfa attempts counter", func(t *testing.T) {
		s := newSess(now.Add(time.Hour))

		n, err := st.Sessions().IncrementMFAAttempts(ctx, s.ID, now)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		n, err = st.Sessions().IncrementMFAAttempts(ctx, s.ID, now)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		_, err = st.Sessions().IncrementMFAAttempts(ctx, "missing", now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		stale := newSess(now.Add(-time.Minute))
		live := newSess(now.Add(time.Hour))

		deleted, err := st.Sessions().DeleteExpiredSessions(ctx, now)
		require.NoError(t, err)
		require.GreaterOrEqual(t, deleted, int64(1))

		_, err = st.Sessions().GetSessionByID(ctx, stale.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.Sessions().GetSessionByID(ctx, live.ID)
		require.NoError(t, err)
	})
}

func TestTxRollbackOnError(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC()
	user := newUser(t, st, "alice")

	sentinel := domain.User{ID: idx.New().String(), Username: "alice", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().IncrementFailures(ctx, user.ID, now); err != nil {
			return err
		}
		// Unique violation forces the whole transaction to roll back.
		return tx.Users().CreateUser(ctx, sentinel)
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedAttempts)
}
