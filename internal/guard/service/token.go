package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/jwtx"
	"github.com/gatewarden/gatewarden/pkg/slogx"
)

// TokenService rotates refresh tokens and revokes them.
type TokenService struct {
	Store  store.Store
	Minter *TokenMinter
}

// Refresh exchanges a valid refresh token for a fresh pair. The old token
// is revoked and the new one created in a single transaction, so a crash
// mid-rotation can never leave two live tokens for the same grant.
//
// The verification state of the original login carries over: a session
// that completed MFA keeps minting verified access tokens across
// rotations.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	hash := cryptox.FingerprintToken(refreshToken)
	record, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if record.Revoked {
		// Replay of a rotated token. Treat the whole session as burned.
		l.Warn("revoked refresh token replayed, revoking session",
			slog.String("session_id", record.SessionID))
		_ = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Sessions().RevokeSession(ctx, record.SessionID); err != nil {
				return err
			}
			return tx.RefreshTokens().RevokeSessionRefreshTokens(ctx, record.SessionID)
		})
		return nil, ErrInvalidRefresh
	}
	if record.Expired(now) {
		return nil, ErrInvalidRefresh
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, record.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if session.Revoked {
		return nil, ErrSessionRevoked
	}

	user, err := s.Store.Users().GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}

	roleNames, err := roleNamesFor(ctx, s.Store.Roles(), user)
	if err != nil {
		return nil, err
	}

	// A pending grant (login before MFA completion) stays pending after
	// rotation; only the MFA verification endpoint upgrades it.
	verified := !user.MFAActive() || containsAMR(record.AMR, jwtx.AMRMFA)

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, hash); err != nil {
			return err
		}
		pair, err = s.Minter.MintPair(ctx, tx.RefreshTokens(),
			user, session.ID, roleNames, record.AMR, verified, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.Store.Sessions().TouchLastSeen(ctx, session.ID, now); err != nil {
		l.Warn("failed to touch session", slog.Any("error", err))
	}

	return &pair, nil
}

// Revoke invalidates a single refresh token by its raw value.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	hash := cryptox.FingerprintToken(refreshToken)
	err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		// Revoking an unknown token is not an error worth surfacing.
		return nil
	}
	return err
}

func containsAMR(amr []string, method string) bool {
	for _, m := range amr {
		if m == method {
			return true
		}
	}
	return false
}
