package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/idx"
	"github.com/gatewarden/gatewarden/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapData describes the initial admin account and role set created
// on first run.
type BootstrapData struct {
	AdminUsername string
	AdminPassword string
	TenantID      string
	Roles         []domain.Role
}

// BootstrapService seeds an empty database with the baseline roles and
// the first admin user. Guarded by a pre-shared token so a freshly
// deployed instance cannot be claimed by a stranger.
type BootstrapService struct {
	Store store.Store
	Token string
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the role set and the admin user atomically. Returns
// the new admin's user ID.
func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req BootstrapData) (string, error) {
	l := slogx.FromContext(ctx)

	if bootstrapped, _ := s.IsBootstrapped(ctx); bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return "", ErrBootstrapAlready
	}
	if token != s.Token {
		l.Warn("unauthorized bootstrap attempt")
		return "", ErrBootstrapUnauthorized
	}

	passHash, err := cryptox.HashSecret(req.AdminPassword)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return "", err
	}

	adminUserID := idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Roles first; the admin user references one of them.
		roleIDs := make(map[string]string, len(req.Roles))
		for _, def := range req.Roles {
			roleID := idx.New().String()
			if err := tx.Roles().CreateRole(ctx, domain.Role{
				ID:          roleID,
				Name:        def.Name,
				Permissions: def.Permissions,
			}); err != nil {
				l.Error("failed to create role",
					slog.String("role_name", def.Name),
					slog.Any("error", err),
				)
				return err
			}
			roleIDs[def.Name] = roleID
		}

		adminRoleID, ok := roleIDs["admin"]
		if !ok {
			return errors.New("bootstrap must define 'admin' role")
		}

		if err := tx.Users().CreateUser(ctx, domain.User{
			ID:           adminUserID,
			Username:     req.AdminUsername,
			PasswordHash: passHash,
			TenantID:     req.TenantID,
			Active:       true,
			RoleIDs:      []string{adminRoleID},
		}); err != nil {
			l.Error("failed to create admin user", slog.Any("error", err))
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	l.Info("successfully bootstrapped system", slog.String("admin_user_id", adminUserID))
	return adminUserID, nil
}
