package service

import (
	"sync"
	"time"
)

const (
	// OriginWindow is the width of the sliding window per request origin.
	OriginWindow = 60 * time.Second
	// OriginMaxAttempts is the number of attempts allowed inside the
	// window; the attempt after that is rejected.
	OriginMaxAttempts = 7
)

// OriginLimiter tracks login attempt timestamps per request origin (client
// IP) in a sliding window. It is independent of identity and runs before any
// user lookup so the per-origin cost of an attack is bounded cheaply.
type OriginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewOriginLimiter() *OriginLimiter {
	return &OriginLimiter{attempts: make(map[string][]time.Time)}
}

// Record registers one attempt for the origin. Call it for every checked
// attempt, before credentials are verified.
func (l *OriginLimiter) Record(origin string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[origin] = append(l.pruneLocked(origin, now), now)
}

// Allowed reports whether the origin is within its attempt budget: at most
// OriginMaxAttempts recorded inside the trailing window. With Record called
// first, the eighth and all further attempts inside a minute are rejected.
func (l *OriginLimiter) Allowed(origin string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.pruneLocked(origin, now)
	l.attempts[origin] = kept
	return len(kept) <= OriginMaxAttempts
}

// Prune drops origins whose recorded attempts have all left the window.
// Called periodically by housekeeping so idle origins do not accumulate.
func (l *OriginLimiter) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for origin := range l.attempts {
		kept := l.pruneLocked(origin, now)
		if len(kept) == 0 {
			delete(l.attempts, origin)
		} else {
			l.attempts[origin] = kept
		}
	}
}

// pruneLocked returns the origin's timestamps still inside the window.
// Caller must hold l.mu.
func (l *OriginLimiter) pruneLocked(origin string, now time.Time) []time.Time {
	cutoff := now.Add(-OriginWindow)
	ts := l.attempts[origin]
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
