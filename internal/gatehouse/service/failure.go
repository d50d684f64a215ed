package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
)

// Fixed defense policy. These are deliberately constants rather than
// configuration; the tests assert the exact values.
const (
	// CaptchaThreshold is the consecutive-failure count at which a captcha
	// challenge becomes required.
	CaptchaThreshold = 3
	// LockoutThreshold is the consecutive-failure count at which the
	// account is locked.
	LockoutThreshold = 5
	// LockoutDuration is how long a lockout lasts. It expires implicitly
	// by time comparison; locked_until is never cleared.
	LockoutDuration = 5 * time.Minute
)

// FailureTracker maintains the per-identity failure counter and lockout
// timestamp. The counter increment and the lockout arming run in one
// transaction so concurrent wrong-password requests for the same identity
// cannot under-count or double-apply the lockout.
type FailureTracker struct {
	Store store.Store
}

// OnFailure records a failed password attempt. It returns the new failure
// count and whether this attempt armed the lockout.
func (t *FailureTracker) OnFailure(ctx context.Context, userID string, now time.Time) (attempts int, locked bool, err error) {
	err = t.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Users().IncrementFailures(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("increment failures: %w", err)
		}
		attempts = n
		if n >= LockoutThreshold {
			locked = true
			return tx.Users().SetLockout(ctx, userID, now.Add(LockoutDuration), now)
		}
		return nil
	})
	return attempts, locked, err
}

// OnSuccess resets the failure counter. The lockout timestamp is left
// untouched; if the user got here it has already expired.
func (t *FailureTracker) OnSuccess(ctx context.Context, userID string, now time.Time) error {
	return t.Store.Users().ResetFailures(ctx, userID, now)
}

// IsLocked reports whether the identity is under an active lockout.
func (t *FailureTracker) IsLocked(u domain.User, now time.Time) bool {
	return u.Locked(now)
}
