package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/gatehouselabs/gatehouse/pkg/cryptox"
)

// ChallengeManager arms and verifies the short human-solvable captcha code
// scoped to a login session. Once armed, the challenge stays required on
// every further attempt in that session until it is solved.
type ChallengeManager struct {
	Store store.Store
}

// Arm generates a fresh code and stores it on the session, replacing any
// prior code.
func (m *ChallengeManager) Arm(ctx context.Context, sess *domain.LoginSession, now time.Time) (string, error) {
	code, err := cryptox.GenerateCaptchaCode()
	if err != nil {
		return "", err
	}
	if err := m.Store.Sessions().SetCaptchaCode(ctx, sess.ID, code, now); err != nil {
		return "", fmt.Errorf("arm captcha: %w", err)
	}
	sess.CaptchaCode = &code
	sess.UpdatedAt = now
	return code, nil
}

// IsArmed reports whether the session currently requires a captcha.
func (m *ChallengeManager) IsArmed(sess *domain.LoginSession) bool {
	return sess != nil && sess.CaptchaArmed()
}

// Verify checks the submitted answer against the armed code. Comparison is
// case-insensitive after trimming whitespace. A wrong non-empty answer
// invalidates the old code and arms a new one, so an attacker cannot retry
// the same challenge; a missing answer leaves the current code in place.
func (m *ChallengeManager) Verify(ctx context.Context, sess *domain.LoginSession, submitted string, now time.Time) error {
	if !m.IsArmed(sess) {
		return nil
	}
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return ErrCaptchaRequired
	}
	if !strings.EqualFold(submitted, *sess.CaptchaCode) {
		if _, err := m.Arm(ctx, sess, now); err != nil {
			return err
		}
		return ErrCaptchaMismatch
	}
	return nil
}

// Disarm clears the challenge from the session.
func (m *ChallengeManager) Disarm(ctx context.Context, sess *domain.LoginSession, now time.Time) error {
	if err := m.Store.Sessions().SetCaptchaCode(ctx, sess.ID, "", now); err != nil {
		return fmt.Errorf("disarm captcha: %w", err)
	}
	sess.CaptchaCode = nil
	sess.UpdatedAt = now
	return nil
}
