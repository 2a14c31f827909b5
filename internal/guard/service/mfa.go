package service

import (
	"context"
	"errors"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const backupCodeCount = 10

// MFAService handles TOTP enrollment, activation and teardown.
type MFAService struct {
	Store store.Store

	// Issuer appears in authenticator apps next to the account name.
	Issuer string
}

// Enroll generates a TOTP secret for the user and stores it without
// enabling MFA. The user proves possession by calling Activate with a
// valid code; until then login behaves as if MFA were off.
func (s *MFAService) Enroll(ctx context.Context, userID string) (*domain.MFAEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAActive() {
		return nil, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Store.Users().UpdateMFASecret(ctx, userID, key.Secret()); err != nil {
		return nil, err
	}

	return &domain.MFAEnrollment{
		Secret:  key.Secret(),
		QRCode:  key.URL(),
		Issuer:  s.Issuer,
		Account: user.Username,
	}, nil
}

// Activate turns enrollment into active MFA. The provided code must
// validate against the stored secret. Returns the plaintext backup codes,
// shown exactly once; only fingerprints are kept.
func (s *MFAService) Activate(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAActive() {
		return nil, ErrMFAAlreadyEnabled
	}
	if user.MFASecret == nil || *user.MFASecret == "" {
		return nil, ErrMFANotEnrolled
	}

	if !totp.Validate(code, *user.MFASecret) {
		return nil, ErrInvalidOTP
	}

	codes := make([]string, 0, backupCodeCount)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().EnableMFA(ctx, userID); err != nil {
			return err
		}
		// Re-activation after a disable starts with a clean slate.
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return err
		}
		for i := 0; i < backupCodeCount; i++ {
			plain, err := cryptox.GenerateToken(cryptox.TokenSize128)
			if err != nil {
				return err
			}
			if err := tx.BackupCodes().CreateBackupCode(ctx, userID, cryptox.FingerprintToken(plain)); err != nil {
				return err
			}
			codes = append(codes, plain)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("mfa activated", "user_id", userID)
	return codes, nil
}

// Disable removes the second factor. Requires a currently valid TOTP code
// or backup code so a stolen access token alone cannot switch MFA off.
func (s *MFAService) Disable(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAActive() {
		return ErrMFANotEnrolled
	}

	valid := totp.Validate(code, *user.MFASecret)
	if !valid {
		hashes, err := s.Store.BackupCodes().ListUserBackupCodes(ctx, userID)
		if err != nil {
			return err
		}
		for _, h := range hashes {
			if cryptox.FingerprintEqual(code, h) {
				valid = true
				break
			}
		}
	}
	if !valid {
		return ErrInvalidOTP
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().DisableMFA(ctx, userID); err != nil {
			return err
		}
		return tx.BackupCodes().DeleteAllBackupCodes(ctx, userID)
	})
}

// BackupCodesRemaining reports how many unused backup codes are left.
func (s *MFAService) BackupCodesRemaining(ctx context.Context, userID string) (int, error) {
	n, err := s.Store.BackupCodes().CountUserBackupCodes(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	return n, err
}
