package domain

import "time"

// APIKey is a long-lived machine credential presented as
// "<publicID>.<secret>". The secret is stored argon2-hashed; lookup is by
// public ID, then the presented secret is verified against the hash.
type APIKey struct {
	ID         string // public ID, the part before the dot
	UserID     string
	Name       string // human label, e.g. "ci-deployer"
	SecretHash string // argon2 encoded
	Revoked    bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
}
