package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
)

type usersRepo struct {
	db querier
}

const userColumns = `id, username, password_hash, failed_attempts, locked_until,
	mfa_enabled, totp_secret, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, failed_attempts, locked_until,
			mfa_enabled, totp_secret, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.FailedAttempts, mapOptionalTime(u.LockedUntil),
		u.MFAEnabled, mapOptionalString(u.TOTPSecret), u.CreatedAt, u.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *usersRepo) IncrementFailures(ctx context.Context, userID string, now time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET failed_attempts = failed_attempts + 1, updated_at = ?
		 WHERE id = ? RETURNING failed_attempts`,
		now, userID,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *usersRepo) ResetFailures(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = 0, updated_at = ? WHERE id = ?`,
		now, userID,
	)
	return err
}

func (r *usersRepo) SetLockout(ctx context.Context, userID string, until time.Time, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET locked_until = ?, updated_at = ? WHERE id = ?`,
		until, now, userID,
	)
	return err
}

func (r *usersRepo) SetTOTPSecret(ctx context.Context, userID string, secret string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		secret, now, userID,
	)
	return err
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET mfa_enabled = TRUE, updated_at = ? WHERE id = ?`,
		now, userID,
	)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u           domain.User
		lockedUntil sql.NullTime
		totpSecret  sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.FailedAttempts, &lockedUntil,
		&u.MFAEnabled, &totpSecret, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.TOTPSecret = mapNullStringPtr(totpSecret)
	return u, nil
}
