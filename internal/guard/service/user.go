package service

import (
	"context"
	"errors"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/idx"
)

// UserService covers account administration.
type UserService struct {
	Store store.Store
}

// Create registers a new active account with the given role names.
func (s *UserService) Create(ctx context.Context, username, password, tenantID string, roleNames []string) (*domain.User, error) {
	hash, err := cryptox.HashSecret(password)
	if err != nil {
		return nil, err
	}

	roles, err := s.Store.Roles().GetRolesByNames(ctx, roleNames)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(roleNames) {
		return nil, errors.New("unknown role name")
	}
	roleIDs := make([]string, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		TenantID:     tenantID,
		Active:       true,
		RoleIDs:      roleIDs,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword verifies the current password before setting a new one,
// then revokes every other credential the user holds.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifySecret(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashSecret(next)
	if err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		// Stolen-credential recovery: a password change logs out
		// everything else.
		if err := tx.Sessions().RevokeAllUserSessions(ctx, userID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
}

// SetActive flips the account's active flag. Deactivation also revokes
// all live sessions and refresh tokens so access stops immediately.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, userID, active); err != nil {
			return err
		}
		if active {
			return nil
		}
		if err := tx.Sessions().RevokeAllUserSessions(ctx, userID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
}

// Get returns one user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
