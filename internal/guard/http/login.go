package http

import (
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/internal/guard/service"
)

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	AuthService *service.AuthService
	CookieMode  bool
	CookieName  string
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceInfo string `json:"device_info,omitempty"`
}

// ServeHTTP godoc
//
//	@Summary		Password Login
//	@Description	Authenticates a username/password pair, creates a session and issues a token pair.
//	@Description	Accounts with MFA enabled receive a short-lived pending token and mfa_required=true;
//	@Description	complete the flow at /v1/auth/mfa/verify.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	tokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	ErrorResponse	"error, error_description"
//	@Failure		401		{object}	ErrorResponse	"error, error_description"
//	@Failure		403		{object}	ErrorResponse	"error, error_description"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	deviceInfo := req.DeviceInfo
	if deviceInfo == "" {
		deviceInfo = r.UserAgent()
	}

	outcome, err := h.AuthService.Login(r.Context(), req.Username, req.Password, deviceInfo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writePair(w, outcome.Pair, h.CookieMode, h.CookieName, tokenResponse{
		MFARequired: outcome.MFARequired,
		MFAMethods:  outcome.MFAMethods,
	})
}
