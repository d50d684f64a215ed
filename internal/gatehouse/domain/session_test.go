package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoginSessionState(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := "user-1"

	base := LoginSession{ID: "s1", ExpiresAt: now.Add(time.Hour)}

	t.Run("anonymous", func(t *testing.T) {
		require.Equal(t, StateAnonymous, base.State(now))
	})

	t.Run("mfa pending", func(t *testing.T) {
		s := base
		s.PendingUserID = &userID
		require.Equal(t, StateMFAPending, s.State(now))
	})

	t.Run("authenticated", func(t *testing.T) {
		s := base
		s.UserID = &userID
		require.Equal(t, StateAuthenticated, s.State(now))
	})

	t.Run("authenticated wins over pending", func(t *testing.T) {
		s := base
		s.UserID = &userID
		s.PendingUserID = &userID
		require.Equal(t, StateAuthenticated, s.State(now))
	})

	t.Run("expiry overrides everything", func(t *testing.T) {
		s := base
		s.UserID = &userID
		require.Equal(t, StateAnonymous, s.State(s.ExpiresAt))
		require.True(t, s.Expired(s.ExpiresAt))
		require.False(t, s.Expired(s.ExpiresAt.Add(-time.Second)))
	})
}

func TestUserLocked(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(5 * time.Minute)

	require.False(t, User{}.Locked(now))
	require.True(t, User{LockedUntil: &until}.Locked(now))
	require.False(t, User{LockedUntil: &until}.Locked(until))
}

func TestUserNeedsEnrollment(t *testing.T) {
	t.Parallel()

	secret := "JBSWY3DPEHPK3PXP"
	empty := ""

	require.True(t, User{}.NeedsEnrollment())
	require.True(t, User{TOTPSecret: &secret}.NeedsEnrollment())
	require.True(t, User{MFAEnabled: true, TOTPSecret: &empty}.NeedsEnrollment())
	require.False(t, User{MFAEnabled: true, TOTPSecret: &secret}.NeedsEnrollment())
}
