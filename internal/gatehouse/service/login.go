package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/gatehouselabs/gatehouse/pkg/cryptox"
	"github.com/gatehouselabs/gatehouse/pkg/idx"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

// LoginStep names the next step after a successful password submission.
type LoginStep string

const (
	StepMFASetup  LoginStep = "mfa_setup"  // first login, enrollment outstanding
	StepMFAVerify LoginStep = "mfa_verify" // enrolled, code required
)

// LoginService drives the login state machine: origin rate limit, lockout
// check, credential verification, captcha challenge, failure bookkeeping,
// session rotation and the hand-off to MFA enrollment or verification.
type LoginService struct {
	Store      store.Store
	Limiter    *OriginLimiter
	Failures   *FailureTracker
	Challenges *ChallengeManager
	MFA        *MFAService
	Sessions   *SessionService
	Clock      Clock
}

// PasswordResult is returned when the password step fully passes.
type PasswordResult struct {
	Session domain.LoginSession // rotated session carrying the pending identity
	Token   string              // signed cookie value for the rotated session
	Next    LoginStep
}

// SubmitPassword runs the complete password step for one login attempt.
// The armed captcha (if any) is evaluated after the credentials, matching
// the original flow: a wrong password never reveals whether the captcha
// answer was right.
//
// On failure the session keeps its state (captcha may have been armed or
// rotated on it); on success the session is replaced wholesale and the old
// one deleted, so no pre-authentication state survives.
func (s *LoginService) SubmitPassword(ctx context.Context, sess *domain.LoginSession, username, password, captcha, origin string) (*PasswordResult, error) {
	now := s.Clock.now()
	log := slogx.FromContext(ctx)

	// Origin limit runs before any identity lookup.
	s.Limiter.Record(origin, now)
	if !s.Limiter.Allowed(origin, now) {
		log.Warn("rate limit exceeded", "origin", origin, "at", now)
		return nil, ErrRateLimited
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same outcome as a wrong password so usernames cannot
			// be enumerated.
			log.Warn("login failed", "username", username, "origin", origin, "reason", "unknown_user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if s.Failures.IsLocked(user, now) {
		// The credential comparison is skipped entirely for locked
		// accounts.
		log.Warn("locked account attempt", "username", user.Username, "origin", origin, "locked_until", *user.LockedUntil)
		return nil, ErrAccountLocked
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, s.recordPasswordFailure(ctx, sess, user, origin, now)
	}

	// Password is correct; an armed challenge still has to be solved.
	if s.Challenges.IsArmed(sess) {
		if err := s.Challenges.Verify(ctx, sess, captcha, now); err != nil {
			if errors.Is(err, ErrCaptchaMismatch) || errors.Is(err, ErrCaptchaRequired) {
				log.Warn("captcha failed", "username", user.Username, "origin", origin)
			}
			return nil, err
		}
		// A solved challenge never re-prompts, even if the rotation
		// below fails and the session survives.
		if err := s.Challenges.Disarm(ctx, sess, now); err != nil {
			return nil, err
		}
	}

	result, err := s.completePasswordStep(ctx, sess, user, now)
	if err != nil {
		return nil, err
	}
	log.Info("password accepted", "username", user.Username, "origin", origin, "next", string(result.Next))
	return result, nil
}

// recordPasswordFailure applies the progressive defenses for one failed
// credential check: counter bump, captcha arming at the threshold, lockout
// at the cap.
func (s *LoginService) recordPasswordFailure(ctx context.Context, sess *domain.LoginSession, user domain.User, origin string, now time.Time) error {
	log := slogx.FromContext(ctx)

	attempts, locked, err := s.Failures.OnFailure(ctx, user.ID, now)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}

	if attempts >= CaptchaThreshold && !s.Challenges.IsArmed(sess) {
		if _, err := s.Challenges.Arm(ctx, sess, now); err != nil {
			return err
		}
		log.Info("captcha armed", "username", user.Username, "origin", origin, "attempts", attempts)
	}

	if locked {
		log.Warn("account locked", "username", user.Username, "origin", origin, "until", now.Add(LockoutDuration))
		return ErrAccountLocked
	}

	log.Warn("login failed", "username", user.Username, "origin", origin, "attempts", attempts)
	return ErrInvalidCredentials
}

// completePasswordStep resets the failure counter, rotates the session so
// nothing from the anonymous session survives, records the pending identity
// and decides between enrollment and verification.
func (s *LoginService) completePasswordStep(ctx context.Context, sess *domain.LoginSession, user domain.User, now time.Time) (*PasswordResult, error) {
	if err := s.Failures.OnSuccess(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("reset failures: %w", err)
	}

	userID := user.ID
	rotated := domain.LoginSession{
		ID:            idx.New().String(),
		PendingUserID: &userID,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.Sessions.lifetime()),
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().DeleteSession(ctx, sess.ID); err != nil {
			return fmt.Errorf("drop old session: %w", err)
		}
		if err := tx.Sessions().CreateSession(ctx, rotated); err != nil {
			return fmt.Errorf("create rotated session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	next := StepMFAVerify
	if user.NeedsEnrollment() {
		if _, err := s.MFA.Provision(ctx, &user); err != nil {
			return nil, err
		}
		next = StepMFASetup
	}

	token, err := s.Sessions.Token(rotated)
	if err != nil {
		return nil, err
	}
	return &PasswordResult{Session: rotated, Token: token, Next: next}, nil
}

// Enrollment returns the presentation data for the pending user's TOTP
// enrollment. The secret is generated at most once; redisplaying the page
// keeps the same secret and URI. An already enrolled identity never gets
// its stored secret back out: a correct password alone must not be enough
// to read the second factor, so those sessions are sent to code
// verification instead.
func (s *LoginService) Enrollment(ctx context.Context, sess *domain.LoginSession) (EnrollmentData, error) {
	user, err := s.pendingUser(ctx, sess, s.Clock.now())
	if err != nil {
		return EnrollmentData{}, err
	}
	if !user.NeedsEnrollment() {
		return EnrollmentData{}, ErrAlreadyEnrolled
	}
	return s.MFA.Provision(ctx, &user)
}

// ConfirmEnrollment validates the first code against the freshly provisioned
// secret. On success MFA is enabled and the session becomes authenticated;
// on failure the secret is kept so the user retries against the same QR.
func (s *LoginService) ConfirmEnrollment(ctx context.Context, sess *domain.LoginSession, code string) error {
	now := s.Clock.now()
	log := slogx.FromContext(ctx)

	user, err := s.pendingUser(ctx, sess, now)
	if err != nil {
		return err
	}
	if !user.NeedsEnrollment() {
		return ErrAlreadyEnrolled
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return ErrNoPendingLogin
	}

	if !s.MFA.Validate(code, *user.TOTPSecret, now) {
		log.Warn("enrollment code rejected", "username", user.Username)
		return s.recordMFAFailure(ctx, sess, now)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().EnableMFA(ctx, user.ID, now); err != nil {
			return fmt.Errorf("enable MFA: %w", err)
		}
		return tx.Sessions().PromotePendingUser(ctx, sess.ID, now)
	})
	if err != nil {
		return err
	}

	sess.UserID = sess.PendingUserID
	sess.PendingUserID = nil
	log.Info("MFA enrollment confirmed", "username", user.Username)
	return nil
}

// VerifyCode validates a one-time code for an already enrolled user and
// completes the login on success. On failure the pending state is retained
// so the user may retry.
func (s *LoginService) VerifyCode(ctx context.Context, sess *domain.LoginSession, code string) error {
	now := s.Clock.now()
	log := slogx.FromContext(ctx)

	user, err := s.pendingUser(ctx, sess, now)
	if err != nil {
		return err
	}
	if !user.MFAEnabled || user.TOTPSecret == nil {
		return ErrNoPendingLogin
	}

	if !s.MFA.Validate(code, *user.TOTPSecret, now) {
		log.Warn("TOTP code rejected", "username", user.Username)
		return s.recordMFAFailure(ctx, sess, now)
	}

	if err := s.Store.Sessions().PromotePendingUser(ctx, sess.ID, now); err != nil {
		return fmt.Errorf("promote session: %w", err)
	}
	sess.UserID = sess.PendingUserID
	sess.PendingUserID = nil
	log.Info("login completed", "username", user.Username)
	return nil
}

// Logout destroys the session unconditionally, clearing any pending
// identity and armed captcha with it.
func (s *LoginService) Logout(ctx context.Context, sess *domain.LoginSession) error {
	if sess == nil {
		return nil
	}
	if err := s.Sessions.Destroy(ctx, sess.ID); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("logged out", "session_id", sess.ID)
	return nil
}

// CurrentUser loads the identity behind an authenticated session.
func (s *LoginService) CurrentUser(ctx context.Context, sess *domain.LoginSession) (domain.User, error) {
	if sess == nil || sess.State(s.Clock.now()) != domain.StateAuthenticated {
		return domain.User{}, ErrNoPendingLogin
	}
	user, err := s.Store.Users().GetUserByID(ctx, *sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNoPendingLogin
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// pendingUser resolves the identity mid-authentication. Anything other than
// a live MFA-pending session resolves to ErrNoPendingLogin, which the HTTP
// layer turns into a redirect to the login start.
func (s *LoginService) pendingUser(ctx context.Context, sess *domain.LoginSession, now time.Time) (domain.User, error) {
	if sess == nil || sess.State(now) != domain.StateMFAPending {
		return domain.User{}, ErrNoPendingLogin
	}
	user, err := s.Store.Users().GetUserByID(ctx, *sess.PendingUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNoPendingLogin
		}
		return domain.User{}, fmt.Errorf("load pending user: %w", err)
	}
	return user, nil
}

// recordMFAFailure bumps the per-session failed-code counter when a cap is
// configured, destroying the pending login once it is reached.
func (s *LoginService) recordMFAFailure(ctx context.Context, sess *domain.LoginSession, now time.Time) error {
	if s.MFA.FailureLimit <= 0 {
		return ErrInvalidMFACode
	}
	attempts, err := s.Store.Sessions().IncrementMFAAttempts(ctx, sess.ID, now)
	if err != nil {
		return fmt.Errorf("record MFA failure: %w", err)
	}
	sess.MFAAttempts = attempts
	if attempts >= s.MFA.FailureLimit {
		if err := s.Sessions.Destroy(ctx, sess.ID); err != nil {
			return err
		}
		slogx.FromContext(ctx).Warn("pending login destroyed after repeated MFA failures", "session_id", sess.ID, "attempts", attempts)
		return ErrTooManyMFAAttempts
	}
	return ErrInvalidMFACode
}
