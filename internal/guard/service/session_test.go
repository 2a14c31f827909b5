package service

import (
	"context"
	"testing"

	"github.com/gatewarden/gatewarden/pkg/httpguard"
	"github.com/stretchr/testify/require"
)

func TestLogoutRevokesSessionAndTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	tokenSvc := &TokenService{Store: s, Minter: minter}
	svc := &SessionService{Store: s}

	seedUser(t, s, "alice", "hunter2!", "member", nil)

	outcome, err := authSvc.Login(ctx, "alice", "hunter2!", "")
	require.NoError(t, err)
	sid := verifyClaims(t, minter, outcome.Pair.AccessToken).SID

	require.NoError(t, svc.Logout(ctx, sid))

	session, err := s.Sessions().GetSessionByID(ctx, sid)
	require.NoError(t, err)
	require.True(t, session.Revoked)

	_, err = tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
	require.Error(t, err)

	// Logging out an already-gone session is fine.
	require.NoError(t, svc.Logout(ctx, "no-such-session"))
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	svc := &SessionService{Store: s}

	user := seedUser(t, s, "bob", "pw-123456", "member", nil)

	for i := 0; i < 3; i++ {
		_, err := authSvc.Login(ctx, "bob", "pw-123456", "")
		require.NoError(t, err)
	}

	require.NoError(t, svc.LogoutAll(ctx, user.ID))

	sessions, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	for _, session := range sessions {
		require.True(t, session.Revoked)
	}
}

func TestRevokeChecksOwnership(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	svc := &SessionService{Store: s}

	alice := seedUser(t, s, "alice", "hunter2!", "role-a", nil)
	bob := seedUser(t, s, "bob", "pw-123456", "role-b", nil)

	outcome, err := authSvc.Login(ctx, "alice", "hunter2!", "")
	require.NoError(t, err)
	sid := verifyClaims(t, minter, outcome.Pair.AccessToken).SID

	require.ErrorIs(t, svc.Revoke(ctx, bob.ID, sid), ErrInvalidCredentials)
	require.NoError(t, svc.Revoke(ctx, alice.ID, sid))
}

func TestGuardAdapters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}

	user := seedUser(t, s, "carol", "pw-123456", "member", nil)

	outcome, err := authSvc.Login(ctx, "carol", "pw-123456", "")
	require.NoError(t, err)
	sid := verifyClaims(t, minter, outcome.Pair.AccessToken).SID

	sessions := &GuardSessions{Store: s}
	users := &GuardUsers{Store: s}

	t.Run("live session resolves", func(t *testing.T) {
		session, err := sessions.FindByID(ctx, sid)
		require.NoError(t, err)
		require.Equal(t, user.ID, session.UserID)
		require.False(t, session.Revoked)
	})

	t.Run("missing session maps to the guard sentinel", func(t *testing.T) {
		_, err := sessions.FindByID(ctx, "no-such-session")
		require.ErrorIs(t, err, httpguard.ErrSessionMissing)
	})

	t.Run("activity check", func(t *testing.T) {
		active, err := users.IsActive(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, active)

		require.NoError(t, s.Users().SetActive(ctx, user.ID, false))
		active, err = users.IsActive(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, active)

		// Unknown user is inactive, not an error.
		active, err = users.IsActive(ctx, "ghost")
		require.NoError(t, err)
		require.False(t, active)
	})
}
