package domain

import "time"

type User struct {
	ID             string
	Username       string
	PasswordHash   string // argon2 encoded
	FailedAttempts int
	LockedUntil    *time.Time // set when failed attempts cross the lockout threshold (nullable)
	MFAEnabled     bool
	TOTPSecret     *string // base32 encoded (nullable, present once provisioned)
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the user is under an active lockout at the given
// instant. Lockouts are never cleared explicitly; they expire by time.
func (u User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// NeedsEnrollment reports whether the user still has to go through first-time
// TOTP enrollment after a successful password step.
func (u User) NeedsEnrollment() bool {
	return !u.MFAEnabled || u.TOTPSecret == nil || *u.TOTPSecret == ""
}
