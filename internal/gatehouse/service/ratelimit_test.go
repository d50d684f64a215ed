package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOriginLimiterAllowsUpToMaxAttempts(t *testing.T) {
	t.Parallel()

	l := NewOriginLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < OriginMaxAttempts; i++ {
		l.Record("10.0.0.1", now)
		require.True(t, l.Allowed("10.0.0.1", now), "attempt %d should be allowed", i+1)
		now = now.Add(time.Second)
	}

	l.Record("10.0.0.1", now)
	require.False(t, l.Allowed("10.0.0.1", now), "attempt %d should be rejected", OriginMaxAttempts+1)
}

func TestOriginLimiterWindowSlides(t *testing.T) {
	t.Parallel()

	l := NewOriginLimiter()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < OriginMaxAttempts+1; i++ {
		l.Record("10.0.0.1", start)
	}
	require.False(t, l.Allowed("10.0.0.1", start))

	// Once the burst leaves the window the origin recovers.
	later := start.Add(OriginWindow + time.Second)
	l.Record("10.0.0.1", later)
	require.True(t, l.Allowed("10.0.0.1", later))
}

func TestOriginLimiterIsPerOrigin(t *testing.T) {
	t.Parallel()

	l := NewOriginLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < OriginMaxAttempts+1; i++ {
		l.Record("10.0.0.1", now)
	}
	require.False(t, l.Allowed("10.0.0.1", now))

	l.Record("10.0.0.2", now)
	require.True(t, l.Allowed("10.0.0.2", now))
}

func TestOriginLimiterPruneDropsIdleOrigins(t *testing.T) {
	t.Parallel()

	l := NewOriginLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	l.Record("10.0.0.1", now)
	l.Record("10.0.0.2", now.Add(30*time.Second))

	l.Prune(now.Add(OriginWindow + time.Second))

	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotContains(t, l.attempts, "10.0.0.1")
	require.Contains(t, l.attempts, "10.0.0.2")
}
