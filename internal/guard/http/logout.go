package http

import (
	"net/http"

	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
)

// LogoutHandler serves POST /v1/auth/logout and /v1/auth/logout_all.
type LogoutHandler struct {
	SessionService *service.SessionService
	CookieMode     bool
	CookieName     string
}

type logoutResponse struct {
	Status string `json:"status"`
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the current session and its refresh tokens. Idempotent.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	logoutResponse	"status"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpguard.PrincipalFromContext(r.Context())
	if !ok || principal.SessionID == "" {
		writeError(w, http.StatusUnauthorized, "invalid_credential", "a session token is required")
		return
	}

	if err := h.SessionService.Logout(r.Context(), principal.SessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.CookieMode {
		clearTokenCookies(w, h.CookieName)
	}
	httpguard.WriteJSON(w, http.StatusOK, logoutResponse{Status: "logged_out"})
}

// HandleLogoutAll godoc
//
//	@Summary		Logout Everywhere
//	@Description	Revokes every session and refresh token the user holds, on all devices.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	logoutResponse	"status"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Router			/v1/auth/logout_all [post].
func (h *LogoutHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpguard.PrincipalFromContext(r.Context())
	if !ok || principal.UserID == "" {
		writeError(w, http.StatusUnauthorized, "invalid_credential", "a session token is required")
		return
	}

	if err := h.SessionService.LogoutAll(r.Context(), principal.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.CookieMode {
		clearTokenCookies(w, h.CookieName)
	}
	httpguard.WriteJSON(w, http.StatusOK, logoutResponse{Status: "logged_out"})
}
