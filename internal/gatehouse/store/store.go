package store

import (
	"context"
	"errors"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite) implement
// this. It exposes sub-repositories to keep concerns tidy and testable.
type Store interface {
	Users() Users
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step operations that must be atomic
	// (e.g. failure-count crossing plus lockout arming).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the identity-store collaborator. Each mutation is a single atomic
// statement so concurrent requests for the same identity cannot under-count
// failures or double-apply a lockout.
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during the password step of a login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// IncrementFailures bumps failed_attempts and returns the new count.
	IncrementFailures(ctx context.Context, userID string, now time.Time) (int, error)

	// ResetFailures zeroes failed_attempts. It deliberately leaves
	// locked_until alone; lockouts expire by time comparison only.
	ResetFailures(ctx context.Context, userID string, now time.Time) error

	// SetLockout records the instant until which logins are refused.
	SetLockout(ctx context.Context, userID string, until time.Time, now time.Time) error

	// SetTOTPSecret stores a freshly provisioned shared secret.
	SetTOTPSecret(ctx context.Context, userID string, secret string, now time.Time) error

	// EnableMFA marks enrollment as confirmed.
	EnableMFA(ctx context.Context, userID string, now time.Time) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

// Sessions persists server-side login sessions keyed by session ID.
type Sessions interface {
	CreateSession(ctx context.Context, s domain.LoginSession) error

	GetSessionByID(ctx context.Context, id string) (domain.LoginSession, error)

	// SetCaptchaCode arms (or, with an empty code, disarms) the challenge.
	SetCaptchaCode(ctx context.Context, id string, code string, now time.Time) error

	// PromotePendingUser moves pending_user_id into user_id, completing
	// authentication for the session.
	PromotePendingUser(ctx context.Context, id string, now time.Time) error

	// IncrementMFAAttempts bumps the failed second-factor counter and
	// returns the new count.
	IncrementMFAAttempts(ctx context.Context, id string, now time.Time) (int, error)

	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions purges sessions whose expiry has passed and
	// returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
