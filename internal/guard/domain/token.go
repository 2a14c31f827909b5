package domain

import "time"

// TokenPair is what the login, MFA and refresh endpoints return: the
// short-lived access token (JWT) and the opaque refresh token. In cookie
// mode the refresh token is stripped from the body before encoding.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"` // always "Bearer"
	ExpiresIn    int    `json:"expires_in"` // seconds until access expiry
}

// RefreshToken models the stored refresh token record. Only the
// fingerprint of the opaque token is persisted, never the token itself.
type RefreshToken struct {
	ID        string
	UserID    string
	SessionID string // persists across rotations
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	AMR       []string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the refresh token is past its expiry.
func (r *RefreshToken) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
