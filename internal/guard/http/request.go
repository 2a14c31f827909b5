package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
	"github.com/gatewarden/gatewarden/pkg/slogx"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// ErrorResponse is the error body shape shared by every endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	httpguard.WriteJSON(w, status, ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

// writeServiceError maps service sentinels onto stable HTTP error codes.
// Anything unmapped is a 500 and gets logged; the body stays generic.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credential", "invalid credentials")
	case errors.Is(err, service.ErrAccountInactive):
		writeError(w, http.StatusForbidden, "account_inactive", "account is deactivated")
	case errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrSessionRevoked):
		writeError(w, http.StatusUnauthorized, "invalid_grant", "refresh token is no longer valid")
	case errors.Is(err, service.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "too_many_attempts", "verification attempts exhausted")
	case errors.Is(err, service.ErrInvalidOTP):
		writeError(w, http.StatusUnauthorized, "invalid_otp", "verification code rejected")
	case errors.Is(err, service.ErrMFANotEnrolled):
		writeError(w, http.StatusBadRequest, "mfa_not_enrolled", "no enrolled second factor")
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		writeError(w, http.StatusConflict, "mfa_already_enabled", "second factor already active")
	case errors.Is(err, service.ErrMFANotRequired):
		writeError(w, http.StatusBadRequest, "mfa_not_required", "account has no active second factor")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// tokenResponse is the JSON shape for endpoints issuing token pairs.
type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	MFARequired  bool     `json:"mfa_required,omitempty"`
	MFAMethods   []string `json:"mfa_methods,omitempty"`
}

// writePair writes a token pair either as JSON or as HttpOnly cookies.
// In cookie mode the refresh token cookie is path-scoped to the refresh
// endpoint so it never rides along on ordinary requests.
func writePair(w http.ResponseWriter, pair domain.TokenPair, cookieMode bool, cookieName string, extra tokenResponse) {
	if cookieMode {
		name := cookieName
		if name == "" {
			name = httpguard.DefaultAccessCookie
		}
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    pair.AccessToken,
			Path:     "/",
			MaxAge:   pair.ExpiresIn,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
		http.SetCookie(w, &http.Cookie{
			Name:     refreshCookieName,
			Value:    pair.RefreshToken,
			Path:     "/v1/auth/refresh",
			MaxAge:   int((7 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})

		extra.TokenType = pair.TokenType
		extra.ExpiresIn = pair.ExpiresIn
		httpguard.WriteJSON(w, http.StatusOK, extra)
		return
	}

	extra.AccessToken = pair.AccessToken
	extra.RefreshToken = pair.RefreshToken
	extra.TokenType = pair.TokenType
	extra.ExpiresIn = pair.ExpiresIn
	httpguard.WriteJSON(w, http.StatusOK, extra)
}

const refreshCookieName = "gw_refresh"

// clearTokenCookies expires both credential cookies on logout.
func clearTokenCookies(w http.ResponseWriter, cookieName string) {
	name := cookieName
	if name == "" {
		name = httpguard.DefaultAccessCookie
	}
	http.SetCookie(w, &http.Cookie{
		Name: name, Value: "", Path: "/", MaxAge: -1,
		HttpOnly: true, Secure: true, SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name: refreshCookieName, Value: "", Path: "/v1/auth/refresh", MaxAge: -1,
		HttpOnly: true, Secure: true, SameSite: http.SameSiteStrictMode,
	})
}
