package domain

import "time"

// LoginState describes where a browser session sits in the login flow.
type LoginState string

const (
	StateAnonymous     LoginState = "anonymous"
	StateMFAPending    LoginState = "mfa_pending" // password accepted, second factor outstanding
	StateAuthenticated LoginState = "authenticated"
)

// LoginSession is the server-side state for one browser session. The cookie
// only carries a signed reference to the session ID; everything sensitive
// (armed captcha code, pending identity) stays in this row.
type LoginSession struct {
	ID            string
	UserID        *string // set once fully authenticated
	PendingUserID *string // set after the password step, cleared when MFA passes
	CaptchaCode   *string // armed challenge code (nullable)
	MFAAttempts   int     // failed second-factor submissions for this pending login
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     time.Time
}

// State derives the login state at the given instant. An expired session is
// anonymous regardless of its contents.
func (s LoginSession) State(now time.Time) LoginState {
	if s.Expired(now) {
		return StateAnonymous
	}
	switch {
	case s.UserID != nil:
		return StateAuthenticated
	case s.PendingUserID != nil:
		return StateMFAPending
	default:
		return StateAnonymous
	}
}

func (s LoginSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CaptchaArmed reports whether a captcha challenge is currently required.
func (s LoginSession) CaptchaArmed() bool {
	return s.CaptchaCode != nil && *s.CaptchaCode != ""
}
