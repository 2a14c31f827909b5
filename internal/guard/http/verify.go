package http

import (
	"net/http"

	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// verifyResponse echoes the authenticated principal back to the caller.
type verifyResponse struct {
	UserID      string   `json:"user_id"`
	SessionID   string   `json:"session_id,omitempty"`
	TenantID    string   `json:"tenant_id,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	MFAVerified bool     `json:"mfa_verified"`
	Source      string   `json:"source"`
}

// VerifyHandler godoc
//
//	@Summary		Verify Session
//	@Description	Runs the full guard pipeline against the presented credential and returns
//	@Description	the resolved principal. Useful for clients confirming a session is still live.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	verifyResponse	"user_id, session_id, roles, permissions"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/auth/verify [get].
func VerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := httpguard.PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_credential", "no authenticated principal")
			return
		}

		httpguard.WriteJSON(w, http.StatusOK, verifyResponse{
			UserID:      principal.UserID,
			SessionID:   principal.SessionID,
			TenantID:    principal.TenantID,
			Roles:       principal.Roles,
			Permissions: principal.Permissions,
			MFAVerified: principal.MFAVerified,
			Source:      string(principal.Source),
		})
	}
}
