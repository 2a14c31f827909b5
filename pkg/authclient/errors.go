package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Stable error codes surfaced to callers. The first six mirror the guard
// service's rejection codes so a consumer can switch on one vocabulary;
// the last three are produced client-side.
const (
	CodeNoCredential      = "no_credential"
	CodeInvalidCredential = "invalid_credential"
	CodeSessionNotFound   = "session_not_found"
	CodeAccountInactive   = "account_inactive"
	CodeMFARequired       = "mfa_required"
	CodeForbidden         = "forbidden"
	CodeRefreshFailed     = "refresh_failed"
	CodeCancelled         = "cancelled"
	CodeTransportTimeout  = "transport_timeout"
)

// AuthError is the typed failure returned by every client operation.
// Code is stable for programmatic handling; Message is for humans.
type AuthError struct {
	// Code is one of the Code* constants.
	Code string `json:"error"`

	// Message is a human-readable description.
	Message string `json:"error_description"`

	// StatusCode is the HTTP status of the failing response, or 0 when the
	// failure never produced a response (timeouts, cancellation).
	StatusCode int `json:"-"`

	// Missing lists roles or permissions the server reported as lacking.
	// Only set for "forbidden" errors.
	Missing []string `json:"missing,omitempty"`
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: %s (missing: %s)", e.Code, e.Message, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Predefined client-side errors.
var (
	// ErrNoCredential is returned when an operation needs stored credentials
	// and none are present.
	ErrNoCredential = &AuthError{
		Code:    CodeNoCredential,
		Message: "no credentials available; log in first",
	}

	// ErrRefreshFailed is returned when exchanging the refresh token failed
	// and the stored credentials were cleared.
	ErrRefreshFailed = &AuthError{
		Code:    CodeRefreshFailed,
		Message: "the refresh token was rejected; credentials cleared",
	}

	// ErrCancelled is returned to refresh waiters when the in-flight refresh
	// is cancelled, typically by logout.
	ErrCancelled = &AuthError{
		Code:    CodeCancelled,
		Message: "the refresh operation was cancelled",
	}
)

// IsAuthError extracts an *AuthError from err, if any.
func IsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	ok := errors.As(err, &ae)
	return ae, ok
}

// CodeOf returns the stable code of err, or "" for non-auth errors.
func CodeOf(err error) string {
	if ae, ok := IsAuthError(err); ok {
		return ae.Code
	}
	return ""
}

// classifyTransportError maps a transport failure to a typed AuthError.
// Deadline expiry and net timeouts become transport_timeout so they are
// never conflated with an authorization failure; everything else keeps
// its original error.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &AuthError{
			Code:    CodeTransportTimeout,
			Message: "the request timed out before a response arrived",
		}
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &AuthError{
			Code:    CodeTransportTimeout,
			Message: "the request timed out before a response arrived",
		}
	}

	if errors.Is(err, context.Canceled) {
		return &AuthError{
			Code:    CodeCancelled,
			Message: "the request context was cancelled",
		}
	}

	return fmt.Errorf("authclient: transport: %w", err)
}

// parseErrorResponse turns a non-2xx response body into a typed AuthError.
// Bodies that are not the service's error shape fall back to a generic
// error carrying the status code.
func parseErrorResponse(statusCode int, body []byte) *AuthError {
	var ae AuthError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Code != "" {
		ae.StatusCode = statusCode
		return &ae
	}

	code := CodeInvalidCredential
	if statusCode == http.StatusForbidden {
		code = CodeForbidden
	}
	return &AuthError{
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
		StatusCode: statusCode,
	}
}
