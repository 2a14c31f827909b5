package authclient

import "time"

// TokenPair is the access/refresh credential pair issued by the service.
// Replaced atomically on refresh, cleared on logout or irrecoverable
// refresh failure.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Empty reports whether the pair carries no access token.
func (p TokenPair) Empty() bool {
	return p.AccessToken == ""
}

// Profile is the cached identity profile stored alongside the pair.
type Profile struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Credentials is the unit stored by a CredentialStore.
type Credentials struct {
	Pair    TokenPair `json:"pair"`
	Profile *Profile  `json:"profile,omitempty"`

	// ObtainedAt records when the pair was issued, for expiry estimates.
	ObtainedAt time.Time `json:"obtained_at"`
}

// LoginResult is the outcome of a Login call. When MFARequired is set the
// returned pair is a short-lived pending pair that only the MFA completion
// endpoint accepts; CompleteMFA exchanges it for a fully verified pair.
type LoginResult struct {
	Pair        TokenPair
	Profile     Profile
	MFARequired bool
	MFAMethods  []string
}

// VerifyResult describes the session behind the current access token.
type VerifyResult struct {
	UserID      string   `json:"user_id"`
	SessionID   string   `json:"session_id"`
	TenantID    string   `json:"tenant_id,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	MFAVerified bool     `json:"mfa_verified"`
}
