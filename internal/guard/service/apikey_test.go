package service

import (
	"context"
	"strings"
	"testing"

	"github.com/gatewarden/gatewarden/pkg/httpguard"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyMintAndVerify(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := &APIKeyService{Store: s}

	user := seedUser(t, s, "alice", "hunter2!", "service", []string{"reports:read"})

	key, full, err := svc.Mint(ctx, user.ID, "ci-pipeline")
	require.NoError(t, err)
	require.Equal(t, "ci-pipeline", key.Name)

	publicID, secret, found := strings.Cut(full, ".")
	require.True(t, found)
	require.Equal(t, key.ID, publicID)
	require.NotEmpty(t, secret)

	t.Run("valid key resolves identity", func(t *testing.T) {
		id, err := svc.VerifyKey(ctx, publicID, secret)
		require.NoError(t, err)
		require.Equal(t, user.ID, id.UserID)
		require.Equal(t, []string{"service"}, id.Roles)
		require.True(t, id.MFAVerified)
		require.Empty(t, id.SessionID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := svc.VerifyKey(ctx, publicID, "wrong")
		require.ErrorIs(t, err, httpguard.ErrAPIKeyMismatch)
	})

	t.Run("unknown public id", func(t *testing.T) {
		_, err := svc.VerifyKey(ctx, "nope", secret)
		require.ErrorIs(t, err, httpguard.ErrAPIKeyMismatch)
	})

	t.Run("list strips secret hashes", func(t *testing.T) {
		keys, err := svc.List(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		require.Empty(t, keys[0].SecretHash)
	})

	t.Run("revoked key stops verifying", func(t *testing.T) {
		require.NoError(t, svc.Revoke(ctx, user.ID, key.ID))
		_, err := svc.VerifyKey(ctx, publicID, secret)
		require.ErrorIs(t, err, httpguard.ErrAPIKeyMismatch)
	})
}

func TestAPIKeyRevokeOwnership(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := &APIKeyService{Store: s}

	owner := seedUser(t, s, "owner", "pw-123456", "role-a", nil)
	other := seedUser(t, s, "other", "pw-123456", "role-b", nil)

	key, _, err := svc.Mint(ctx, owner.ID, "mine")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Revoke(ctx, other.ID, key.ID), ErrInvalidCredentials)
	require.NoError(t, svc.Revoke(ctx, owner.ID, key.ID))
}
