package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
)

type apiKeysRepo struct {
	q querier
}

const apiKeyColumns = `id, user_id, name, secret_hash, revoked, last_used_at, created_at`

func scanAPIKey(scan func(dest ...any) error) (domain.APIKey, error) {
	var (
		k          domain.APIKey
		revoked    int
		lastUsedAt sql.NullString
		createdAt  string
	)
	err := scan(&k.ID, &k.UserID, &k.Name, &k.SecretHash, &revoked, &lastUsedAt, &createdAt)
	if err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}

	k.Revoked = revoked != 0
	k.LastUsedAt = parseNullTime(lastUsedAt)
	k.CreatedAt = parseTime(createdAt)
	return k, nil
}

func (r *apiKeysRepo) CreateAPIKey(ctx context.Context, k domain.APIKey) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO api_keys (id, user_id, name, secret_hash) VALUES (?, ?, ?, ?)`,
		k.ID, k.UserID, k.Name, k.SecretHash)
	return err
}

func (r *apiKeysRepo) GetAPIKeyByID(ctx context.Context, id string) (domain.APIKey, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, id)
	return scanAPIKey(row.Scan)
}

func (r *apiKeysRepo) ListUserAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *apiKeysRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`,
		fmtTime(at), id)
	return err
}

func (r *apiKeysRepo) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE api_keys SET revoked = 1 WHERE id = ?`, id)
	return err
}
