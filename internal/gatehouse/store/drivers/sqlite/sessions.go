package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatehouselabs/gatehouse/internal/gatehouse/domain"
)

type sessionsRepo struct {
	db querier
}

const sessionColumns = `id, user_id, pending_user_id, captcha_code, mfa_attempts,
	created_at, updated_at, expires_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.LoginSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_sessions (id, user_id, pending_user_id, captcha_code,
			mfa_attempts, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, mapOptionalString(s.UserID), mapOptionalString(s.PendingUserID),
		mapOptionalString(s.CaptchaCode), s.MFAAttempts, s.CreatedAt, s.UpdatedAt, s.ExpiresAt,
	)
	return err
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.LoginSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM login_sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) SetCaptchaCode(ctx context.Context, id string, code string, now time.Time) error {
	var captcha sql.NullString
	if code != "" {
		captcha = sql.NullString{String: code, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE login_sessions SET captcha_code = ?, updated_at = ? WHERE id = ?`,
		captcha, now, id,
	)
	return err
}

func (r *sessionsRepo) PromotePendingUser(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE login_sessions
		 SET user_id = pending_user_id, pending_user_id = NULL, mfa_attempts = 0, updated_at = ?
		 WHERE id = ? AND pending_user_id IS NOT NULL`,
		now, id,
	)
	return err
}

func (r *sessionsRepo) IncrementMFAAttempts(ctx context.Context, id string, now time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE login_sessions SET mfa_attempts = mfa_attempts + 1, updated_at = ?
		 WHERE id = ? RETURNING mfa_attempts`,
		now, id,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM login_sessions WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM login_sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (domain.LoginSession, error) {
	var (
		s             domain.LoginSession
		userID        sql.NullString
		pendingUserID sql.NullString
		captchaCode   sql.NullString
	)
	err := row.Scan(
		&s.ID, &userID, &pendingUserID, &captchaCode, &s.MFAAttempts,
		&s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt,
	)
	if err != nil {
		return domain.LoginSession{}, mapNotFound(err)
	}
	s.UserID = mapNullStringPtr(userID)
	s.PendingUserID = mapNullStringPtr(pendingUserID)
	s.CaptchaCode = mapNullStringPtr(captchaCode)
	return s, nil
}
