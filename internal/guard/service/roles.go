package service

import (
	"context"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
	"github.com/gatewarden/gatewarden/pkg/idx"
)

// RolesService manages roles and doubles as the permission source for the
// request guard.
type RolesService struct {
	Store store.Store
}

var _ httpguard.RoleSource = (*RolesService)(nil)

// PermissionsFor maps role names to their permission lists. Unknown role
// names (stale claims after a role was deleted) are simply absent.
func (s *RolesService) PermissionsFor(ctx context.Context, roleNames []string) (map[string][]string, error) {
	if len(roleNames) == 0 {
		return map[string][]string{}, nil
	}
	roles, err := s.Store.Roles().GetRolesByNames(ctx, roleNames)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(roles))
	for _, r := range roles {
		out[r.Name] = r.Permissions
	}
	return out, nil
}

// Create registers a new role with the given permissions.
func (s *RolesService) Create(ctx context.Context, name string, permissions []string) (*domain.Role, error) {
	role := domain.Role{
		ID:          idx.New().String(),
		Name:        name,
		Permissions: permissions,
	}
	if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return &role, nil
}

// List returns every role.
func (s *RolesService) List(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListAll(ctx)
}

// UpdatePermissions replaces a role's permission list.
func (s *RolesService) UpdatePermissions(ctx context.Context, roleID string, permissions []string) error {
	return s.Store.Roles().UpdateRolePermissions(ctx, roleID, permissions)
}

// Delete removes a role. Fails while users still hold it.
func (s *RolesService) Delete(ctx context.Context, roleID string) error {
	return s.Store.Roles().DeleteRole(ctx, roleID)
}
