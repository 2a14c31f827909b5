package http

import (
	"net/http"

	"github.com/gatewarden/gatewarden/internal/guard/service"
)

// RefreshHandler serves POST /v1/auth/refresh. Unguarded: the refresh
// token itself is the credential.
type RefreshHandler struct {
	TokenService *service.TokenService
	CookieMode   bool
	CookieName   string
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ServeHTTP godoc
//
//	@Summary		Rotate Token Pair
//	@Description	Exchanges a live refresh token for a fresh pair. The old token is revoked
//	@Description	atomically; replaying it afterwards revokes the whole session.
//	@Description	In cookie mode the token is read from the refresh cookie and the body may be empty.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	false	"refresh_token (header mode)"
//	@Success		200		{object}	tokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	ErrorResponse	"error, error_description"
//	@Failure		401		{object}	ErrorResponse	"error, error_description"
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := ""
	if h.CookieMode {
		if c, err := r.Cookie(refreshCookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), token)
	if err != nil {
		if h.CookieMode {
			clearTokenCookies(w, h.CookieName)
		}
		writeServiceError(w, r, err)
		return
	}

	writePair(w, *pair, h.CookieMode, h.CookieName, tokenResponse{})
}
