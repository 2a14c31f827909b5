package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists credentials in redis so multiple processes sharing a
// client identity (e.g. replicated workers) use one credential pair instead
// of racing to rotate the same refresh token.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a redis-backed CredentialStore. The scope string
// distinguishes independent credential sets within one redis instance;
// entries expire after ttl (0 means no expiry).
func NewRedisStore(client *redis.Client, scope string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    fmt.Sprintf("authclient:credentials:%s", scope),
		ttl:    ttl,
	}
}

func (r *RedisStore) Load(ctx context.Context) (*Credentials, error) {
	data, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authclient: redis load: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("authclient: redis load: corrupt entry: %w", err)
	}
	return &creds, nil
}

func (r *RedisStore) Save(ctx context.Context, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("authclient: redis save: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("authclient: redis save: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("authclient: redis clear: %w", err)
	}
	return nil
}
