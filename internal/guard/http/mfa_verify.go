package http

import (
	"net/http"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// MFAVerifyHandler serves POST /v1/auth/mfa/verify. The route is guarded
// with the MFA gate skipped: a pending token authenticates here and
// nowhere else.
type MFAVerifyHandler struct {
	AuthService *service.AuthService
	CookieMode  bool
	CookieName  string
}

type mfaVerifyRequest struct {
	Method string `json:"method"`
	Code   string `json:"code"`
}

// ServeHTTP godoc
//
//	@Summary		Complete MFA
//	@Description	Verifies a TOTP or backup code for a pending session and upgrades it to a
//	@Description	fully verified token pair. The pending refresh token is revoked in the process.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mfaVerifyRequest	true	"method (totp or backup_codes) and code"
//	@Success		200		{object}	tokenResponse		"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		401		{object}	ErrorResponse		"error, error_description"
//	@Failure		429		{object}	ErrorResponse		"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/auth/mfa/verify [post].
func (h *MFAVerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpguard.PrincipalFromContext(r.Context())
	if !ok || principal.SessionID == "" {
		writeError(w, http.StatusUnauthorized, "invalid_credential", "a session token is required")
		return
	}

	var req mfaVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Method == "" {
		req.Method = domain.MFAMethodTOTP
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	pair, err := h.AuthService.VerifyMFA(r.Context(), principal.UserID, principal.SessionID, req.Method, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writePair(w, *pair, h.CookieMode, h.CookieName, tokenResponse{})
}
