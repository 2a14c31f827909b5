package domain

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2 encoded
	TenantID     string
	Active       bool
	MFAEnabled   *time.Time // Timestamp when MFA was activated (nullable)
	MFASecret    *string    // TOTP secret (nullable, base32 encoded)
	RoleIDs      []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAActive reports whether the user has completed MFA enrollment.
func (u *User) MFAActive() bool {
	return u.MFAEnabled != nil
}
