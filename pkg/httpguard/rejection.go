package httpguard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Rejection codes. These are stable identifiers for programmatic handling;
// callers can tell "log in again" from "insufficient privileges" from
// "complete MFA" without parsing messages.
const (
	CodeNoCredential      = "no_credential"
	CodeInvalidCredential = "invalid_credential"
	CodeSessionNotFound   = "session_not_found"
	CodeAccountInactive   = "account_inactive"
	CodeMFARequired       = "mfa_required"
	CodeForbidden         = "forbidden"
)

// Rejection is a typed authentication/authorization failure produced by the
// guard pipeline. It implements error and can write itself as an HTTP
// response.
type Rejection struct {
	// StatusCode is the HTTP status for this rejection.
	StatusCode int `json:"-"`

	// Code is the stable rejection code (e.g. "session_not_found").
	Code string `json:"error"`

	// Message is a human-readable description.
	Message string `json:"error_description"`

	// Missing lists the roles or permissions the principal lacked.
	// Only set for "forbidden" rejections.
	Missing []string `json:"missing,omitempty"`
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	if len(r.Missing) > 0 {
		return fmt.Sprintf("%s: %s (missing: %s)", r.Code, r.Message, strings.Join(r.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// WriteError writes the rejection to an HTTP response writer. Bearer-style
// failures also carry an RFC 6750 WWW-Authenticate header.
func (r *Rejection) WriteError(w http.ResponseWriter) {
	switch r.Code {
	case CodeNoCredential, CodeInvalidCredential, CodeSessionNotFound:
		w.Header().Set("WWW-Authenticate",
			`Bearer error="invalid_token", error_description="`+r.Message+`"`)
	case CodeForbidden:
		if len(r.Missing) > 0 {
			w.Header().Set("WWW-Authenticate",
				`Bearer error="insufficient_scope", scope="`+strings.Join(r.Missing, " ")+`"`)
		}
	}

	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.StatusCode)
	_ = json.NewEncoder(w).Encode(r)
}

// Predefined rejections. Handlers may use these directly; the pipeline
// builds its own instances when extra detail (missing roles) applies.
var (
	ErrNoCredential = &Rejection{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeNoCredential,
		Message:    "no credential was presented",
	}

	ErrInvalidCredential = &Rejection{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeInvalidCredential,
		Message:    "the credential is invalid, expired or malformed",
	}

	ErrSessionNotFound = &Rejection{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeSessionNotFound,
		Message:    "the backing session no longer exists or was revoked",
	}

	ErrAccountInactive = &Rejection{
		StatusCode: http.StatusForbidden,
		Code:       CodeAccountInactive,
		Message:    "the account is deactivated",
	}

	ErrMFARequired = &Rejection{
		StatusCode: http.StatusForbidden,
		Code:       CodeMFARequired,
		Message:    "multi-factor authentication must be completed",
	}
)

// forbidden builds a Forbidden rejection naming what the principal lacked.
func forbidden(kind string, missing []string) *Rejection {
	return &Rejection{
		StatusCode: http.StatusForbidden,
		Code:       CodeForbidden,
		Message:    "missing required " + kind,
		Missing:    missing,
	}
}
