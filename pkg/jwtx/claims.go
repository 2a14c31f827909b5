package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for the session lifecycle.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// PendingAccessTokenTTL caps the lifetime of a pending token issued
	// after password login but before MFA completion.
	PendingAccessTokenTTL = 5 * time.Minute
)

// Authentication Method Reference values carried in the "amr" claim.
const (
	AMRPassword = "pwd" // Password-based authentication
	AMROTP      = "otp" // One-time password (e.g. TOTP)
	AMRMFA      = "mfa" // Multi-factor authentication was completed
	AMRAPIKey   = "key" // API key authentication
)

// Claims are access-token claims for guarded requests. The guard pipeline
// treats them as the source of truth until contradicted by the session store.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session identifier. It persists across token refreshes
	// and ties the token to a revocable server-side session record.
	SID string `json:"sid,omitempty"`

	// TenantID scopes the principal to a tenant, when multi-tenancy applies.
	TenantID string `json:"tid,omitempty"`

	// Roles attached to the user at issue time.
	Roles []string `json:"roles,omitempty"`

	// MFAEnabled reports whether the user has MFA configured.
	MFAEnabled bool `json:"mfa,omitempty"`

	// MFAVerified reports whether the second factor was presented for this
	// session. A token with MFAEnabled and not MFAVerified only passes
	// routes that explicitly skip the MFA gate.
	MFAVerified bool `json:"mfv,omitempty"`

	// AMR is the Authentication Methods Reference history, e.g. ["pwd","mfa"].
	AMR []string `json:"amr,omitempty"`
}

// NewAccessClaims builds minimally-correct access token claims.
func NewAccessClaims(
	subject, sid, tenantID string,
	roles, amr []string,
	mfaEnabled, mfaVerified bool,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:         sid,
		TenantID:    tenantID,
		Roles:       roles,
		MFAEnabled:  mfaEnabled,
		MFAVerified: mfaVerified,
		AMR:         amr,
	}
}

// MFAPending reports whether the token represents a half-authenticated
// identity awaiting a second factor.
func (c *Claims) MFAPending() bool {
	return c.MFAEnabled && !c.MFAVerified
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
