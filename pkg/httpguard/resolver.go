package httpguard

import "context"

// Identity is the verified-but-unauthorized output of the VERIFY and
// SESSION_CHECK stages, fed to the Resolver.
type Identity struct {
	UserID      string
	SessionID   string
	TenantID    string
	Roles       []string
	MFAVerified bool
	Source      CredentialSource
}

// Resolver maps a verified identity to its effective roles and permissions.
// The default is RoleResolver; deployments resolving against an external
// policy system inject their own implementation.
type Resolver interface {
	Resolve(ctx context.Context, id Identity) (roles, permissions []string, err error)
}

// RoleSource supplies permission sets per role name. The issuing service
// backs this with its roles table.
type RoleSource interface {
	PermissionsFor(ctx context.Context, roleNames []string) (map[string][]string, error)
}

// RoleResolver is the default Resolver. It keeps the roles attached to the
// identity and derives permissions by unioning the permission sets of all
// of those roles.
type RoleResolver struct {
	Source RoleSource
}

func (r *RoleResolver) Resolve(ctx context.Context, id Identity) ([]string, []string, error) {
	if len(id.Roles) == 0 {
		return nil, nil, nil
	}

	perRole, err := r.Source.PermissionsFor(ctx, id.Roles)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{})
	var perms []string
	for _, role := range id.Roles {
		for _, p := range perRole[role] {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}

	return id.Roles, perms, nil
}
