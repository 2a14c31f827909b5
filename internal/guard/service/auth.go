package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/idx"
	"github.com/gatewarden/gatewarden/pkg/jwtx"
	"github.com/gatewarden/gatewarden/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

// AuthService handles password login and second-factor completion.
type AuthService struct {
	Store  store.Store
	Minter *TokenMinter
}

// LoginOutcome is what Login hands the HTTP layer. When MFARequired is
// set the pair is pending (short TTL, not MFA-verified) and only the MFA
// verification endpoint accepts it.
type LoginOutcome struct {
	User        domain.User
	Pair        domain.TokenPair
	MFARequired bool
	MFAMethods  []string
}

// Login verifies the password, creates a session and mints a pair.
//
// Accounts with MFA enabled get a pending pair: the MFA gate rejects it on
// every guarded route until VerifyMFA rotates it to a verified one.
func (s *AuthService) Login(ctx context.Context, username, password, deviceInfo string) (*LoginOutcome, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		l.Warn("login: user lookup failed", slog.Any("error", err))
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifySecret(password, user.PasswordHash); err != nil {
		l.Info("password verification failed", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}

	roleNames, err := roleNamesFor(ctx, s.Store.Roles(), user)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		ID:         idx.New().String(),
		UserID:     user.ID,
		DeviceInfo: deviceInfo,
	}

	verified := !user.MFAActive()
	amr := []string{jwtx.AMRPassword}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return err
		}
		pair, err = s.Minter.MintPair(ctx, tx.RefreshTokens(),
			user, session.ID, roleNames, amr, verified, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	outcome := &LoginOutcome{User: user, Pair: pair}
	if !verified {
		outcome.MFARequired = true
		outcome.MFAMethods = []string{domain.MFAMethodTOTP, domain.MFAMethodBackupCode}
	}
	return outcome, nil
}

// VerifyMFA completes the second factor for a pending session. On success
// the session's refresh tokens are revoked and a fully verified pair is
// minted, all in one transaction. Failures burn an attempt; exhausting the
// attempt budget revokes the session outright.
func (s *AuthService) VerifyMFA(ctx context.Context, userID, sessionID, method, code string) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if session.Revoked || session.UserID != userID {
		return nil, ErrInvalidCredentials
	}
	if session.AttemptsExhausted() {
		return nil, ErrTooManyAttempts
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.MFAActive() {
		return nil, ErrMFANotRequired
	}

	ok, err := s.verifySecondFactor(ctx, user, method, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		updated, err := s.Store.Sessions().IncrementMFAAttempts(ctx, sessionID)
		if err != nil {
			l.Error("failed to increment mfa attempts", slog.Any("error", err))
			return nil, ErrInvalidOTP
		}
		if updated.AttemptsExhausted() {
			l.Warn("mfa attempt budget exhausted, revoking session",
				slog.String("session_id", sessionID))
			_ = s.Store.WithTx(ctx, func(tx store.Tx) error {
				if err := tx.Sessions().RevokeSession(ctx, sessionID); err != nil {
					return err
				}
				return tx.RefreshTokens().RevokeSessionRefreshTokens(ctx, sessionID)
			})
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalidOTP
	}

	roleNames, err := roleNamesFor(ctx, s.Store.Roles(), user)
	if err != nil {
		return nil, err
	}

	amr := []string{jwtx.AMRPassword, jwtx.AMROTP, jwtx.AMRMFA}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// The pending pair's refresh token dies with the upgrade.
		if err := tx.RefreshTokens().RevokeSessionRefreshTokens(ctx, sessionID); err != nil {
			return err
		}
		pair, err = s.Minter.MintPair(ctx, tx.RefreshTokens(),
			user, sessionID, roleNames, amr, true, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &pair, nil
}

func (s *AuthService) verifySecondFactor(ctx context.Context, user domain.User, method, code string) (bool, error) {
	switch method {
	case domain.MFAMethodTOTP:
		if user.MFASecret == nil || *user.MFASecret == "" {
			return false, ErrMFANotEnrolled
		}
		return totp.Validate(code, *user.MFASecret), nil

	case domain.MFAMethodBackupCode:
		hashes, err := s.Store.BackupCodes().ListUserBackupCodes(ctx, user.ID)
		if err != nil {
			return false, err
		}
		for _, h := range hashes {
			if cryptox.FingerprintEqual(code, h) {
				// Single use: the matched code is gone for good.
				if err := s.Store.BackupCodes().DeleteBackupCode(ctx, user.ID, h); err != nil {
					return false, err
				}
				return true, nil
			}
		}
		return false, nil

	default:
		return false, ErrInvalidOTP
	}
}
