package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, user_id, device_info, mfa_attempts, revoked, created_at, last_seen_at`

func scanSession(scan func(dest ...any) error) (domain.Session, error) {
	var (
		s                    domain.Session
		revoked              int
		createdAt, lastSeen  string
	)
	err := scan(&s.ID, &s.UserID, &s.DeviceInfo, &s.MFAAttempts, &revoked, &createdAt, &lastSeen)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.Revoked = revoked != 0
	s.CreatedAt = parseTime(createdAt)
	s.LastSeenAt = parseTime(lastSeen)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, device_info) VALUES (?, ?, ?)`,
		s.ID, s.UserID, s.DeviceInfo)
	return err
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row.Scan)
}

func (r *sessionsRepo) ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionsRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE id = ?`,
		fmtTime(at), id)
	return err
}

func (r *sessionsRepo) IncrementMFAAttempts(ctx context.Context, id string) (domain.Session, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET mfa_attempts = mfa_attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return domain.Session{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Session{}, mapNotFound(sql.ErrNoRows)
	}

	return r.GetSessionByID(ctx, id)
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET revoked = 1 WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) RevokeAllUserSessions(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET revoked = 1 WHERE user_id = ?`, userID)
	return err
}

func (r *sessionsRepo) DeleteRevokedSessionsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE revoked = 1 AND last_seen_at < ?`,
		fmtTime(cutoff))
	return err
}
