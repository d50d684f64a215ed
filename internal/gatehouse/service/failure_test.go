package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFailureTrackerCountsAndLocks(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	clock := newTestClock()
	user := createTestUser(t, st, "alice", "correct horse", clock.now)

	tracker := &FailureTracker{Store: st}

	for i := 1; i < LockoutThreshold; i++ {
		attempts, locked, err := tracker.OnFailure(ctx, user.ID, clock.now)
		require.NoError(t, err)
		require.Equal(t, i, attempts)
		require.False(t, locked)
	}

	attempts, locked, err := tracker.OnFailure(ctx, user.ID, clock.now)
	require.NoError(t, err)
	require.Equal(t, LockoutThreshold, attempts)
	require.True(t, locked)

	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LockedUntil)
	require.WithinDuration(t, clock.now.Add(LockoutDuration), *stored.LockedUntil, time.Second)
	require.True(t, tracker.IsLocked(stored, clock.now))
}

func TestFailureTrackerLockoutExpires(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	clock := newTestClock()
	user := createTestUser(t, st, "alice", "correct horse", clock.now)

	tracker := &FailureTracker{Store: st}
	for i := 0; i < LockoutThreshold; i++ {
		_, _, err := tracker.OnFailure(ctx, user.ID, clock.now)
		require.NoError(t, err)
	}

	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, tracker.IsLocked(stored, clock.now))
	require.True(t, tracker.IsLocked(stored, clock.now.Add(LockoutDuration-time.Second)))
	require.False(t, tracker.IsLocked(stored, clock.now.Add(LockoutDuration)))
}

func TestFailureTrackerOnSuccessResetsCounterOnly(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	clock := newTestClock()
	user := createTestUser(t, st, "alice", "correct horse", clock.now)

	tracker := &FailureTracker{Store: st}
	for i := 0; i < LockoutThreshold; i++ {
		_, _, err := tracker.OnFailure(ctx, user.ID, clock.now)
		require.NoError(t, err)
	}

	require.NoError(t, tracker.OnSuccess(ctx, user.ID, clock.now))

	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, stored.FailedAttempts)
	// The lockout timestamp is not cleared; it just ages out.
	require.NotNil(t, stored.LockedUntil)
}
