package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
	"github.com/gatewarden/gatewarden/pkg/idx"
)

// APIKeyService mints and verifies long-lived API keys. A key is
// "publicID.secret": the public ID indexes the record, the secret is
// argon2-hashed at rest and disclosed exactly once at mint time.
type APIKeyService struct {
	Store store.Store
}

var _ httpguard.APIKeyVerifier = (*APIKeyService)(nil)

// Mint creates a key for the user and returns its full value. The caller
// must show it to the user now; it cannot be recovered later.
func (s *APIKeyService) Mint(ctx context.Context, userID, name string) (*domain.APIKey, string, error) {
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, "", err
	}
	hash, err := cryptox.HashSecret(secret)
	if err != nil {
		return nil, "", err
	}

	key := domain.APIKey{
		ID:         idx.New().String(),
		UserID:     userID,
		Name:       name,
		SecretHash: hash,
	}
	if err := s.Store.APIKeys().CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}

	return &key, fmt.Sprintf("%s.%s", key.ID, secret), nil
}

// VerifyKey checks a presented publicID/secret pair and resolves the
// identity it authenticates. API keys act for their owning user with the
// user's roles and count as MFA-verified.
func (s *APIKeyService) VerifyKey(ctx context.Context, publicID, secret string) (httpguard.Identity, error) {
	key, err := s.Store.APIKeys().GetAPIKeyByID(ctx, publicID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httpguard.Identity{}, httpguard.ErrAPIKeyMismatch
		}
		return httpguard.Identity{}, err
	}
	if key.Revoked {
		return httpguard.Identity{}, httpguard.ErrAPIKeyMismatch
	}
	if err := cryptox.VerifySecret(secret, key.SecretHash); err != nil {
		return httpguard.Identity{}, httpguard.ErrAPIKeyMismatch
	}

	user, err := s.Store.Users().GetUserByID(ctx, key.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httpguard.Identity{}, httpguard.ErrAPIKeyMismatch
		}
		return httpguard.Identity{}, err
	}

	roleNames, err := roleNamesFor(ctx, s.Store.Roles(), user)
	if err != nil {
		return httpguard.Identity{}, err
	}

	// Best-effort: a failed touch must not fail the request.
	_ = s.Store.APIKeys().TouchLastUsed(ctx, publicID, time.Now())

	return httpguard.Identity{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Roles:       roleNames,
		MFAVerified: true,
		Source:      httpguard.SourceAPIKey,
	}, nil
}

// List returns the user's keys, newest first. Secret hashes are stripped.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]domain.APIKey, error) {
	keys, err := s.Store.APIKeys().ListUserAPIKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		keys[i].SecretHash = ""
	}
	return keys, nil
}

// Revoke disables a key, but only if it belongs to the user.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID string) error {
	key, err := s.Store.APIKeys().GetAPIKeyByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if key.UserID != userID {
		return ErrInvalidCredentials
	}
	return s.Store.APIKeys().RevokeAPIKey(ctx, keyID)
}
