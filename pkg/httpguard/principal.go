package httpguard

import (
	"context"
	"slices"
)

// CredentialSource identifies which verification strategy admitted a
// principal.
type CredentialSource string

const (
	SourceNone   CredentialSource = ""
	SourceBearer CredentialSource = "bearer"
	SourceAPIKey CredentialSource = "apikey"
)

// Principal is the authenticated identity and its resolved authorization
// attributes for one request. It is request-scoped and never persisted.
type Principal struct {
	UserID      string
	SessionID   string
	TenantID    string
	Roles       []string
	Permissions []string
	MFAVerified bool
	Source      CredentialSource

	// Anonymous marks the synthetic principal produced when an optional
	// route downgrades a missing or failed credential.
	Anonymous bool
}

// Anonymous returns the principal used for optional routes with no
// admissible credential.
func anonymousPrincipal() Principal {
	return Principal{Anonymous: true}
}

// HasRole reports whether the principal holds the given role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// HasPermission reports whether the principal holds the given permission.
func (p Principal) HasPermission(perm string) bool {
	return slices.Contains(p.Permissions, perm)
}

// missingFrom returns the values in required that are absent from have.
func missingFrom(required, have []string) []string {
	var missing []string
	for _, want := range required {
		if !slices.Contains(have, want) {
			missing = append(missing, want)
		}
	}
	return missing
}

type ctxKey struct{}

// ContextWithPrincipal injects the principal for downstream handlers.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the request principal. The second return is
// false when the request did not pass through the guard middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
