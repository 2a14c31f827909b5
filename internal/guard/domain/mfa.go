package domain

// MFAChallenge is attached to a login response when the account has MFA
// enabled: the returned pair is pending and only the MFA verification
// endpoint accepts it.
type MFAChallenge struct {
	MFARequired bool     `json:"mfa_required"` // always true
	Methods     []string `json:"mfa_methods"`  // e.g. ["totp", "backup_codes"]
}

// MFAEnrollment is returned when a user starts TOTP enrollment.
type MFAEnrollment struct {
	Secret  string // Base32 encoded secret for TOTP
	QRCode  string // otpauth:// URL for QR code generation
	Issuer  string
	Account string
}

// Supported MFA methods.
const (
	MFAMethodTOTP       = "totp"
	MFAMethodBackupCode = "backup_codes"
)
