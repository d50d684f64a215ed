package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionSignerRoundTrip(t *testing.T) {
	t.Parallel()

	signer := NewSessionSigner([]byte("0123456789abcdef0123456789abcdef"), "gatehouse")
	now := time.Now()

	token, err := signer.Sign("sess-123", now, now.Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sid, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "sess-123", sid)
}

func TestSessionSignerRejectsBadTokens(t *testing.T) {
	t.Parallel()

	signer := NewSessionSigner([]byte("0123456789abcdef0123456789abcdef"), "gatehouse")
	now := time.Now()

	token, err := signer.Sign("sess-123", now, now.Add(time.Hour))
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := signer.Verify("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered signature", func(t *testing.T) {
		_, err := signer.Verify(token[:len(token)-4] + "AAAA")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewSessionSigner([]byte("ffffffffffffffffffffffffffffffff"), "gatehouse")
		_, err := other.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewSessionSigner([]byte("0123456789abcdef0123456789abcdef"), "someone-else")
		_, err := other.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		stale, err := signer.Sign("sess-123", now.Add(-2*time.Hour), now.Add(-time.Hour))
		require.NoError(t, err)
		_, err = signer.Verify(stale)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty subject", func(t *testing.T) {
		blank, err := signer.Sign("", now, now.Add(time.Hour))
		require.NoError(t, err)
		_, err = signer.Verify(blank)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
