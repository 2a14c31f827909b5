package service

import (
	"context"
	"testing"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/internal/guard/store/drivers/sqlite"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/idx"
	"github.com/gatewarden/gatewarden/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestMinter(t *testing.T) *TokenMinter {
	t.Helper()

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "gatewarden-test",
		Audience:  []string{"api"},
		NumKeys:   1,
	})
	require.NoError(t, err)

	return &TokenMinter{
		KeyManager: km,
		Issuer:     "gatewarden-test",
		Audience:   []string{"api"},
	}
}

// seedUser creates a role and an active user holding it, returning the
// user with its plaintext password set aside.
func seedUser(t *testing.T, s store.Store, username, password string, roleName string, perms []string) domain.User {
	t.Helper()
	ctx := context.Background()

	role := domain.Role{
		ID:          idx.New().String(),
		Name:        roleName,
		Permissions: perms,
	}
	require.NoError(t, s.Roles().CreateRole(ctx, role))

	hash, err := cryptox.HashSecret(password)
	require.NoError(t, err)

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		TenantID:     "tenant-1",
		Active:       true,
		RoleIDs:      []string{role.ID},
	}
	require.NoError(t, s.Users().CreateUser(ctx, user))
	return user
}

// enableTOTP enrolls and force-enables MFA for a user, returning the raw
// TOTP secret for generating codes in tests.
func enableTOTP(t *testing.T, s store.Store, userID string) string {
	t.Helper()
	ctx := context.Background()

	svc := &MFAService{Store: s, Issuer: "gatewarden-test"}
	enrollment, err := svc.Enroll(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, s.Users().EnableMFA(ctx, userID))
	return enrollment.Secret
}

func verifyClaims(t *testing.T, m *TokenMinter, accessToken string) jwtx.Claims {
	t.Helper()

	claims, err := m.KeyManager.Verifier.Verify(accessToken)
	require.NoError(t, err)
	return claims
}
