package service

import (
	"context"
	"errors"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// SessionService handles logout and session introspection.
type SessionService struct {
	Store store.Store
}

// Logout revokes one session and its refresh tokens together.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().RevokeSession(ctx, sessionID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		return tx.RefreshTokens().RevokeSessionRefreshTokens(ctx, sessionID)
	})
}

// LogoutAll revokes every session and refresh token the user holds.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().RevokeAllUserSessions(ctx, userID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
}

// List returns the user's sessions, newest first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListUserSessions(ctx, userID)
}

// Revoke kills a single session, but only if it belongs to the user.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID string) error {
	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if session.UserID != userID {
		return ErrInvalidCredentials
	}
	return s.Logout(ctx, sessionID)
}

// GuardSessions adapts the store to httpguard.SessionStore so the
// middleware can check session liveness on every bearer request.
type GuardSessions struct {
	Store store.Store
}

var _ httpguard.SessionStore = (*GuardSessions)(nil)

func (g *GuardSessions) FindByID(ctx context.Context, sessionID string) (httpguard.Session, error) {
	s, err := g.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httpguard.Session{}, httpguard.ErrSessionMissing
		}
		return httpguard.Session{}, err
	}
	return httpguard.Session{
		ID:      s.ID,
		UserID:  s.UserID,
		Revoked: s.Revoked,
	}, nil
}

// GuardUsers adapts the store to httpguard.UserStore for the account
// activity check.
type GuardUsers struct {
	Store store.Store
}

var _ httpguard.UserStore = (*GuardUsers)(nil)

func (g *GuardUsers) IsActive(ctx context.Context, userID string) (bool, error) {
	u, err := g.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.Active, nil
}
