package domain

import "time"

// MaxMFAAttempts bounds failed MFA verifications per session before the
// session is revoked outright.
const MaxMFAAttempts = 5

// Session is the server-side session record. Created at login, looked up
// by every guarded request, destroyed or revoked on logout, logout-all and
// user deactivation. An access token whose sid has no live session never
// authenticates.
type Session struct {
	ID          string
	UserID      string
	DeviceInfo  string // free-form user agent / device description
	MFAAttempts int
	Revoked     bool
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// AttemptsExhausted reports whether the session burned through its MFA
// verification budget.
func (s *Session) AttemptsExhausted() bool {
	return s.MFAAttempts >= MaxMFAAttempts
}
