package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserCreate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := &UserService{Store: s}

	seedUser(t, s, "admin", "pw-123456", "admin", []string{"users:write"})

	user, err := svc.Create(ctx, "newbie", "initial-pw", "tenant-1", []string{"admin"})
	require.NoError(t, err)
	require.True(t, user.Active)
	require.Len(t, user.RoleIDs, 1)

	// The new account can authenticate straight away.
	authSvc := &AuthService{Store: s, Minter: newTestMinter(t)}
	_, err = authSvc.Login(ctx, "newbie", "initial-pw", "")
	require.NoError(t, err)

	t.Run("unknown role refused", func(t *testing.T) {
		_, err := svc.Create(ctx, "another", "pw", "tenant-1", []string{"no-such-role"})
		require.Error(t, err)
	})
}

func TestChangePasswordRevokesEverything(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	tokenSvc := &TokenService{Store: s, Minter: minter}
	svc := &UserService{Store: s}

	user := seedUser(t, s, "alice", "old-password", "member", nil)

	outcome, err := authSvc.Login(ctx, "alice", "old-password", "")
	require.NoError(t, err)

	require.ErrorIs(t,
		svc.ChangePassword(ctx, user.ID, "wrong", "new-password"),
		ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "old-password", "new-password"))

	// Old sessions and refresh tokens are dead.
	_, err = tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
	require.Error(t, err)

	// Old password no longer works, new one does.
	_, err = authSvc.Login(ctx, "alice", "old-password", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = authSvc.Login(ctx, "alice", "new-password", "")
	require.NoError(t, err)
}

func TestDeactivationKillsAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	tokenSvc := &TokenService{Store: s, Minter: minter}
	svc := &UserService{Store: s}

	user := seedUser(t, s, "bob", "pw-123456", "member", nil)

	outcome, err := authSvc.Login(ctx, "bob", "pw-123456", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, user.ID, false))

	_, err = authSvc.Login(ctx, "bob", "pw-123456", "")
	require.ErrorIs(t, err, ErrAccountInactive)
	_, err = tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
	require.Error(t, err)

	// Reactivation restores login but not the old credentials.
	require.NoError(t, svc.SetActive(ctx, user.ID, true))
	_, err = authSvc.Login(ctx, "bob", "pw-123456", "")
	require.NoError(t, err)
	_, err = tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
	require.Error(t, err)
}
