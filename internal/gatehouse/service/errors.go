package service

import "errors"

// Login flow outcomes. All of these are recovered locally by the HTTP layer
// and rendered back to the user; only store failures propagate as wrapped
// errors and surface as a generic failure.
var (
	ErrRateLimited        = errors.New("rate_limit_exceeded")
	ErrAccountLocked      = errors.New("account_locked")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrCaptchaRequired    = errors.New("captcha_required")
	ErrCaptchaMismatch    = errors.New("captcha_mismatch")
	ErrInvalidMFACode     = errors.New("invalid_mfa_code")
	ErrTooManyMFAAttempts = errors.New("too_many_mfa_attempts")
	ErrAlreadyEnrolled    = errors.New("already_enrolled")
	ErrNoPendingLogin     = errors.New("no_pending_login")
)
