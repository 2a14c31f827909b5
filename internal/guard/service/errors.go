package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountInactive    = errors.New("account_inactive")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrSessionRevoked     = errors.New("session_revoked")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrInvalidOTP         = errors.New("invalid_otp")
	ErrMFANotEnrolled     = errors.New("mfa_not_enrolled")
	ErrMFAAlreadyEnabled  = errors.New("mfa_already_enabled")
	ErrMFANotRequired     = errors.New("mfa_not_required")
)
