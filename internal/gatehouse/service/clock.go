package service

import "time"

// Clock supplies the current time. The services take a Clock instead of
// calling time.Now directly so lockout, rate-limit and TOTP behavior is
// deterministic in tests. A nil Clock falls back to wall time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
