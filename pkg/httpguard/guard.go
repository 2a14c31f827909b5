package httpguard

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/pkg/jwtx"
	"github.com/gatewarden/gatewarden/pkg/slogx"
)

// Sentinel errors returned by the guard's collaborators.
var (
	// ErrSessionMissing is returned by a SessionStore when no record exists.
	ErrSessionMissing = errors.New("httpguard: session not found")
	// ErrAPIKeyMismatch is returned by an APIKeyVerifier on any lookup or
	// secret failure. Collapsed deliberately so callers cannot distinguish
	// "unknown key" from "wrong secret".
	ErrAPIKeyMismatch = errors.New("httpguard: api key invalid")
)

// Session is the server-side session record as the guard needs it.
type Session struct {
	ID      string
	UserID  string
	Revoked bool
}

// SessionStore looks up session records by identifier.
type SessionStore interface {
	FindByID(ctx context.Context, sessionID string) (Session, error)
}

// UserStore answers whether an account is still active. Used after the
// session check so a deactivated user's live tokens stop working.
type UserStore interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// APIKeyVerifier validates an API key's public/secret pair against stored
// hashes and returns the identity it authenticates.
type APIKeyVerifier interface {
	VerifyKey(ctx context.Context, publicID, secret string) (Identity, error)
}

// RouteOptions is the explicit per-route configuration supplied at
// registration time.
type RouteOptions struct {
	// Optional downgrades every rejection except mfa_required to an
	// anonymous principal instead of failing the request.
	Optional bool

	// SkipMFA exempts the route from the MFA gate. Set it only on the
	// routes that complete MFA itself.
	SkipMFA bool

	// RequiredRoles the principal must hold every listed role.
	RequiredRoles []string

	// RequiredPermissions the principal must hold every listed permission.
	RequiredPermissions []string
}

// Guard orchestrates the authentication pipeline for guarded requests:
// extraction, verification, session check, MFA gate and authorization.
// It is stateless and safe for unbounded parallel use.
type Guard struct {
	Verifier jwtx.Verifier
	Sessions SessionStore
	Users    UserStore
	APIKeys  APIKeyVerifier // optional; nil disables API key auth
	Resolver Resolver

	// Extract selects where bearer credentials are read from.
	Extract ExtractMode
	// CookieName overrides DefaultAccessCookie in cookie modes.
	CookieName string
}

// Authenticate runs the pipeline and returns either a Principal or a
// *Rejection error. Under opts.Optional every rejection except
// mfa_required is absorbed into an anonymous principal: a half
// authenticated MFA-pending identity must never pass for anonymous.
func (g *Guard) Authenticate(r *http.Request, opts RouteOptions) (Principal, error) {
	ctx := r.Context()

	raw, source, found := g.extract(r)
	if !found {
		if opts.Optional {
			return anonymousPrincipal(), nil
		}
		return Principal{}, ErrNoCredential
	}

	var (
		id  Identity
		rej *Rejection
	)
	switch source {
	case SourceAPIKey:
		id, rej = g.verifyAPIKey(ctx, raw)
	default:
		id, rej = g.verifyBearer(ctx, raw)
	}
	if rej != nil {
		if opts.Optional {
			return anonymousPrincipal(), nil
		}
		return Principal{}, rej
	}

	// MFA gate. API key identities carry MFAVerified=true from the
	// verifier; only bearer tokens can be pending.
	if !id.MFAVerified && !opts.SkipMFA {
		return Principal{}, ErrMFARequired
	}

	principal, err := g.authorize(ctx, id, opts)
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) && opts.Optional {
			return anonymousPrincipal(), nil
		}
		return Principal{}, err
	}

	return principal, nil
}

func (g *Guard) verifyBearer(ctx context.Context, raw string) (Identity, *Rejection) {
	claims, err := g.Verifier.Verify(raw)
	if err != nil {
		slogx.FromContext(ctx).Warn("bearer verification failed", "err", err)
		return Identity{}, ErrInvalidCredential
	}

	id := Identity{
		UserID:      claims.Subject,
		SessionID:   claims.SID,
		TenantID:    claims.TenantID,
		Roles:       claims.Roles,
		MFAVerified: !claims.MFAPending(),
		Source:      SourceBearer,
	}

	sess, err := g.Sessions.FindByID(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionMissing) {
			return Identity{}, ErrSessionNotFound
		}
		slogx.FromContext(ctx).Error("session lookup failed", "err", err)
		return Identity{}, ErrSessionNotFound
	}
	if sess.Revoked || sess.UserID != claims.Subject {
		return Identity{}, ErrSessionNotFound
	}

	active, err := g.Users.IsActive(ctx, claims.Subject)
	if err != nil || !active {
		return Identity{}, ErrAccountInactive
	}

	return id, nil
}

func (g *Guard) verifyAPIKey(ctx context.Context, raw string) (Identity, *Rejection) {
	if g.APIKeys == nil {
		return Identity{}, ErrInvalidCredential
	}

	publicID, secret, ok := strings.Cut(raw, ".")
	if !ok || publicID == "" || secret == "" {
		return Identity{}, ErrInvalidCredential
	}

	id, err := g.APIKeys.VerifyKey(ctx, publicID, secret)
	if err != nil {
		if !errors.Is(err, ErrAPIKeyMismatch) {
			slogx.FromContext(ctx).Error("api key verification failed", "err", err)
		}
		return Identity{}, ErrInvalidCredential
	}

	// API keys are minted post-authentication and bypass both the session
	// store and the MFA gate.
	id.Source = SourceAPIKey
	id.MFAVerified = true

	active, err := g.Users.IsActive(ctx, id.UserID)
	if err != nil || !active {
		return Identity{}, ErrAccountInactive
	}

	return id, nil
}

func (g *Guard) authorize(ctx context.Context, id Identity, opts RouteOptions) (Principal, error) {
	roles, perms, err := g.Resolver.Resolve(ctx, id)
	if err != nil {
		slogx.FromContext(ctx).Error("authorization resolve failed", "err", err)
		return Principal{}, forbidden("roles", opts.RequiredRoles)
	}

	if missing := missingFrom(opts.RequiredRoles, roles); len(missing) > 0 {
		return Principal{}, forbidden("roles", missing)
	}
	if missing := missingFrom(opts.RequiredPermissions, perms); len(missing) > 0 {
		return Principal{}, forbidden("permissions", missing)
	}

	return Principal{
		UserID:      id.UserID,
		SessionID:   id.SessionID,
		TenantID:    id.TenantID,
		Roles:       roles,
		Permissions: perms,
		MFAVerified: id.MFAVerified,
		Source:      id.Source,
	}, nil
}
