package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	tokenSvc := &TokenService{Store: s, Minter: minter}

	user := seedUser(t, s, "alice", "hunter2!", "admin", nil)

	outcome, err := authSvc.Login(ctx, "alice", "hunter2!", "")
	require.NoError(t, err)
	sid := verifyClaims(t, minter, outcome.Pair.AccessToken).SID

	pair, err := tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, outcome.Pair.RefreshToken, pair.RefreshToken)
	require.NotEqual(t, outcome.Pair.AccessToken, pair.AccessToken)

	// Session and verification state carry over.
	claims := verifyClaims(t, minter, pair.AccessToken)
	require.Equal(t, sid, claims.SID)
	require.Equal(t, user.ID, claims.Subject)
	require.True(t, claims.MFAVerified)

	// The new token keeps working, rotation after rotation.
	pair2, err := tokenSvc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, sid, verifyClaims(t, minter, pair2.AccessToken).SID)
}

func TestRefreshReplayBurnsSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	tokenSvc := &TokenService{Store: s, Minter: minter}

	seedUser(t, s, "bob", "pw-123456", "member", nil)

	outcome, err := authSvc.Login(ctx, "bob", "pw-123456", "")
	require.NoError(t, err)
	sid := verifyClaims(t, minter, outcome.Pair.AccessToken).SID

	fresh, err := tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
	require.NoError(t, err)

	// Replaying the rotated-out token revokes the whole session.
	_, err = tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	session, err := s.Sessions().GetSessionByID(ctx, sid)
	require.NoError(t, err)
	require.True(t, session.Revoked)

	// Including the legitimately rotated successor.
	_, err = tokenSvc.Refresh(ctx, fresh.RefreshToken)
	require.Error(t, err)
}

func TestRefreshRejections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	tokenSvc := &TokenService{Store: s, Minter: minter}
	sessionSvc := &SessionService{Store: s}

	user := seedUser(t, s, "carol", "pw-123456", "member", nil)

	t.Run("unknown token", func(t *testing.T) {
		_, err := tokenSvc.Refresh(ctx, "never-issued")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("revoked session", func(t *testing.T) {
		outcome, err := authSvc.Login(ctx, "carol", "pw-123456", "")
		require.NoError(t, err)
		sid := verifyClaims(t, minter, outcome.Pair.AccessToken).SID

		require.NoError(t, sessionSvc.Logout(ctx, sid))

		_, err = tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("deactivated user", func(t *testing.T) {
		outcome, err := authSvc.Login(ctx, "carol", "pw-123456", "")
		require.NoError(t, err)

		require.NoError(t, s.Users().SetActive(ctx, user.ID, false))
		t.Cleanup(func() {
			require.NoError(t, s.Users().SetActive(ctx, user.ID, true))
		})

		_, err = tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
		require.ErrorIs(t, err, ErrAccountInactive)
	})
}

func TestRevokeRefreshToken(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	tokenSvc := &TokenService{Store: s, Minter: minter}

	seedUser(t, s, "dave", "pw-123456", "member", nil)

	outcome, err := authSvc.Login(ctx, "dave", "pw-123456", "")
	require.NoError(t, err)

	require.NoError(t, tokenSvc.Revoke(ctx, outcome.Pair.RefreshToken))

	_, err = tokenSvc.Refresh(ctx, outcome.Pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Revoking a token that never existed is a quiet no-op.
	require.NoError(t, tokenSvc.Revoke(ctx, "never-issued"))
}
