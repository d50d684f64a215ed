package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/gatehouselabs/gatehouse/pkg/idx"
	"github.com/gatehouselabs/gatehouse/pkg/jwtx"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

// DefaultSessionLifetime bounds how long a browser session may live,
// including one sitting in an MFA-pending state with no activity.
const DefaultSessionLifetime = 30 * time.Minute

// SessionService owns server-side login sessions and the signed cookie
// tokens referencing them.
type SessionService struct {
	Store    store.Store
	Signer   *jwtx.SessionSigner
	Lifetime time.Duration
	Clock    Clock
}

func (s *SessionService) lifetime() time.Duration {
	if s.Lifetime <= 0 {
		return DefaultSessionLifetime
	}
	return s.Lifetime
}

// Begin creates a fresh anonymous session and returns it with its signed
// cookie token.
func (s *SessionService) Begin(ctx context.Context) (domain.LoginSession, string, error) {
	now := s.Clock.now()
	sess := domain.LoginSession{
		ID:        idx.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.lifetime()),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.LoginSession{}, "", fmt.Errorf("create session: %w", err)
	}
	token, err := s.Token(sess)
	if err != nil {
		return domain.LoginSession{}, "", err
	}
	return sess, token, nil
}

// Token signs a cookie token referencing the session.
func (s *SessionService) Token(sess domain.LoginSession) (string, error) {
	token, err := s.Signer.Sign(sess.ID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Resolve maps a cookie token to its live session. An invalid, tampered,
// expired or unknown token resolves to no session, which callers treat as
// anonymous; it is never an error.
func (s *SessionService) Resolve(ctx context.Context, token string) (domain.LoginSession, bool) {
	if token == "" {
		return domain.LoginSession{}, false
	}
	sid, err := s.Signer.Verify(token)
	if err != nil {
		return domain.LoginSession{}, false
	}
	sess, err := s.Store.Sessions().GetSessionByID(ctx, sid)
	if err != nil {
		return domain.LoginSession{}, false
	}
	now := s.Clock.now()
	if sess.Expired(now) {
		// Lazy cleanup; housekeeping sweeps the rest.
		if derr := s.Store.Sessions().DeleteSession(ctx, sess.ID); derr != nil {
			slogx.FromContext(ctx).Warn("failed to delete expired session", "session_id", sess.ID, "err", derr)
		}
		return domain.LoginSession{}, false
	}
	return sess, true
}

// Destroy removes the session state unconditionally, leaving no residual
// pending identity or armed captcha.
func (s *SessionService) Destroy(ctx context.Context, sessionID string) error {
	if err := s.Store.Sessions().DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
