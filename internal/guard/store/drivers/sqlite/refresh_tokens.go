package sqlite

import (
	"context"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, session_id, token_hash, amr, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.SessionID, t.TokenHash, joinList(t.AMR), fmtTime(t.ExpiresAt))
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t                               domain.RefreshToken
		amr                             string
		revoked                         int
		expiresAt, createdAt, updatedAt string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, session_id, token_hash, amr, expires_at, revoked, created_at, updated_at
		 FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.UserID, &t.SessionID, &t.TokenHash, &amr, &expiresAt, &revoked, &createdAt, &updatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.AMR = splitList(amr)
	t.ExpiresAt = parseTime(expiresAt)
	t.Revoked = revoked != 0
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens
		 SET revoked = 1, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE token_hash = ?`, hash)
	return err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens
		 SET revoked = 1, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE user_id = ? AND revoked = 0`, userID)
	return err
}

func (r *refreshTokensRepo) RevokeSessionRefreshTokens(ctx context.Context, sessionID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens
		 SET revoked = 1, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE session_id = ? AND revoked = 0`, sessionID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`)
	return err
}
