package service

import (
	"context"
	"testing"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	svc := &AuthService{Store: s, Minter: minter}

	user := seedUser(t, s, "alice", "hunter2!", "admin", []string{"users:write"})

	t.Run("success mints verified pair", func(t *testing.T) {
		outcome, err := svc.Login(ctx, "alice", "hunter2!", "cli/1.0")
		require.NoError(t, err)
		require.False(t, outcome.MFARequired)
		require.Empty(t, outcome.MFAMethods)
		require.Equal(t, "Bearer", outcome.Pair.TokenType)
		require.NotEmpty(t, outcome.Pair.RefreshToken)

		claims := verifyClaims(t, minter, outcome.Pair.AccessToken)
		require.Equal(t, user.ID, claims.Subject)
		require.Equal(t, []string{"admin"}, claims.Roles)
		require.True(t, claims.MFAVerified)
		require.False(t, claims.MFAPending())

		sessions, err := s.Sessions().ListUserSessions(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		require.Equal(t, "cli/1.0", sessions[0].DeviceInfo)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice", "not-it", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody", "hunter2!", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		require.NoError(t, s.Users().SetActive(ctx, user.ID, false))
		t.Cleanup(func() {
			require.NoError(t, s.Users().SetActive(ctx, user.ID, true))
		})

		_, err := svc.Login(ctx, "alice", "hunter2!", "")
		require.ErrorIs(t, err, ErrAccountInactive)
	})
}

func TestLoginWithMFAPending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	svc := &AuthService{Store: s, Minter: minter}

	user := seedUser(t, s, "bob", "secret-pw", "member", nil)
	enableTOTP(t, s, user.ID)

	outcome, err := svc.Login(ctx, "bob", "secret-pw", "")
	require.NoError(t, err)
	require.True(t, outcome.MFARequired)
	require.Contains(t, outcome.MFAMethods, domain.MFAMethodTOTP)
	require.Contains(t, outcome.MFAMethods, domain.MFAMethodBackupCode)

	// Pending pair: short lived, not MFA-verified.
	require.LessOrEqual(t, outcome.Pair.ExpiresIn, int(jwtx.PendingAccessTokenTTL.Seconds()))
	claims := verifyClaims(t, minter, outcome.Pair.AccessToken)
	require.True(t, claims.MFAPending())
	require.False(t, claims.MFAVerified)
}

func TestVerifyMFA(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	svc := &AuthService{Store: s, Minter: minter}

	user := seedUser(t, s, "carol", "pass-word", "member", nil)
	secret := enableTOTP(t, s, user.ID)

	login := func(t *testing.T) (*LoginOutcome, string) {
		t.Helper()
		outcome, err := svc.Login(ctx, "carol", "pass-word", "")
		require.NoError(t, err)
		require.True(t, outcome.MFARequired)
		claims := verifyClaims(t, minter, outcome.Pair.AccessToken)
		return outcome, claims.SID
	}

	t.Run("valid code upgrades to verified pair", func(t *testing.T) {
		outcome, sid := login(t)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		pair, err := svc.VerifyMFA(ctx, user.ID, sid, domain.MFAMethodTOTP, code)
		require.NoError(t, err)

		claims := verifyClaims(t, minter, pair.AccessToken)
		require.True(t, claims.MFAVerified)
		require.Contains(t, claims.AMR, jwtx.AMRMFA)
		require.Equal(t, sid, claims.SID)

		// The pending refresh token died with the upgrade.
		pendingSvc := &TokenService{Store: s, Minter: minter}
		_, err = pendingSvc.Refresh(ctx, outcome.Pair.RefreshToken)
		require.Error(t, err)
	})

	t.Run("wrong code burns an attempt", func(t *testing.T) {
		_, sid := login(t)

		_, err := svc.VerifyMFA(ctx, user.ID, sid, domain.MFAMethodTOTP, "000000")
		require.ErrorIs(t, err, ErrInvalidOTP)

		session, err := s.Sessions().GetSessionByID(ctx, sid)
		require.NoError(t, err)
		require.Equal(t, 1, session.MFAAttempts)
	})

	t.Run("exhausting attempts revokes the session", func(t *testing.T) {
		_, sid := login(t)

		var lastErr error
		for i := 0; i < domain.MaxMFAAttempts; i++ {
			_, lastErr = svc.VerifyMFA(ctx, user.ID, sid, domain.MFAMethodTOTP, "000000")
		}
		require.ErrorIs(t, lastErr, ErrTooManyAttempts)

		session, err := s.Sessions().GetSessionByID(ctx, sid)
		require.NoError(t, err)
		require.True(t, session.Revoked)

		// A late correct code is refused too.
		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		_, err = svc.VerifyMFA(ctx, user.ID, sid, domain.MFAMethodTOTP, code)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("session of a different user is refused", func(t *testing.T) {
		_, sid := login(t)
		other := seedUser(t, s, "carol2", "pw", "other-role", nil)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		_, err = svc.VerifyMFA(ctx, other.ID, sid, domain.MFAMethodTOTP, code)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestVerifyMFABackupCode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	minter := newTestMinter(t)
	authSvc := &AuthService{Store: s, Minter: minter}
	mfaSvc := &MFAService{Store: s, Issuer: "gatewarden-test"}

	user := seedUser(t, s, "dave", "pw-123456", "member", nil)

	enrollment, err := mfaSvc.Enroll(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	backupCodes, err := mfaSvc.Activate(ctx, user.ID, code)
	require.NoError(t, err)
	require.Len(t, backupCodes, backupCodeCount)

	outcome, err := authSvc.Login(ctx, "dave", "pw-123456", "")
	require.NoError(t, err)
	sid := verifyClaims(t, minter, outcome.Pair.AccessToken).SID

	pair, err := authSvc.VerifyMFA(ctx, user.ID, sid, domain.MFAMethodBackupCode, backupCodes[0])
	require.NoError(t, err)
	require.True(t, verifyClaims(t, minter, pair.AccessToken).MFAVerified)

	// Single use: the same code is dead afterwards.
	outcome2, err := authSvc.Login(ctx, "dave", "pw-123456", "")
	require.NoError(t, err)
	sid2 := verifyClaims(t, minter, outcome2.Pair.AccessToken).SID

	_, err = authSvc.VerifyMFA(ctx, user.ID, sid2, domain.MFAMethodBackupCode, backupCodes[0])
	require.ErrorIs(t, err, ErrInvalidOTP)

	remaining, err := mfaSvc.BackupCodesRemaining(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount-1, remaining)
}
