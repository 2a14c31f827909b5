package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestMFAEnrollActivateDisable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := &MFAService{Store: s, Issuer: "gatewarden-test"}

	user := seedUser(t, s, "alice", "hunter2!", "member", nil)

	enrollment, err := svc.Enroll(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.QRCode, "otpauth://totp/")
	require.Equal(t, "alice", enrollment.Account)

	// Enrollment alone does not activate MFA.
	stored, err := s.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, stored.MFAActive())

	t.Run("activation requires a valid code", func(t *testing.T) {
		_, err := svc.Activate(ctx, user.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	codes, err := svc.Activate(ctx, user.ID, code)
	require.NoError(t, err)
	require.Len(t, codes, backupCodeCount)

	stored, err = s.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, stored.MFAActive())

	t.Run("double activation is refused", func(t *testing.T) {
		_, err := svc.Activate(ctx, user.ID, code)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})

	t.Run("re-enrollment while active is refused", func(t *testing.T) {
		_, err := svc.Enroll(ctx, user.ID)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})

	t.Run("disable requires a valid code and wipes backup codes", func(t *testing.T) {
		require.ErrorIs(t, svc.Disable(ctx, user.ID, "000000"), ErrInvalidOTP)

		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, svc.Disable(ctx, user.ID, code))

		stored, err := s.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, stored.MFAActive())

		remaining, err := svc.BackupCodesRemaining(ctx, user.ID)
		require.NoError(t, err)
		require.Zero(t, remaining)
	})
}

func TestMFADisableWithBackupCode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := &MFAService{Store: s, Issuer: "gatewarden-test"}

	user := seedUser(t, s, "bob", "pw-123456", "member", nil)

	enrollment, err := svc.Enroll(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	codes, err := svc.Activate(ctx, user.ID, code)
	require.NoError(t, err)

	// A backup code works where the authenticator is lost.
	require.NoError(t, svc.Disable(ctx, user.ID, codes[3]))

	stored, err := s.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, stored.MFAActive())
}
