package store

import (
	"context"
	"errors"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and to actively stop accidental transactions within
// transactions.
type Store interface {
	Users() Users
	Sessions() Sessions
	Roles() Roles
	RefreshTokens() RefreshTokens
	APIKeys() APIKeys
	BackupCodes() BackupCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback().
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. fn returning an error rolls
	// back; nil commits. Preferred over Tx for most call sites.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos, plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during password login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetActive flips the account's active flag.
	SetActive(ctx context.Context, userID string, active bool) error

	// UpdateMFASecret sets the TOTP secret for a user during enrollment.
	UpdateMFASecret(ctx context.Context, userID string, secret string) error

	// EnableMFA marks MFA as activated (sets mfa_enabled timestamp).
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA clears mfa_enabled and mfa_secret.
	DisableMFA(ctx context.Context, userID string) error

	// DeleteUser cascades to sessions, refresh_tokens and api_keys.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Sessions interface {
	// CreateSession inserts a new session record at login.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID looks a session up on every guarded request.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ListUserSessions returns the user's sessions, newest first.
	ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error)

	// TouchLastSeen bumps last_seen_at.
	TouchLastSeen(ctx context.Context, id string, at time.Time) error

	// IncrementMFAAttempts bumps the failed-attempt counter and returns the
	// updated session.
	IncrementMFAAttempts(ctx context.Context, id string) (domain.Session, error)

	// RevokeSession flips revoked=1 for one session.
	RevokeSession(ctx context.Context, id string) error

	// RevokeAllUserSessions bulk revocation (logout-all, deactivation).
	RevokeAllUserSessions(ctx context.Context, userID string) error

	// DeleteRevokedSessionsBefore is housekeeping for stale revoked rows.
	DeleteRevokedSessionsBefore(ctx context.Context, cutoff time.Time) error
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// GetRolesByNames fetches multiple roles at once; missing names are
	// simply absent from the result.
	GetRolesByNames(ctx context.Context, names []string) ([]domain.Role, error)

	ListAll(ctx context.Context) ([]domain.Role, error)
	CreateRole(ctx context.Context, r domain.Role) error

	// UpdateRolePermissions replaces the permissions for a role.
	UpdateRolePermissions(ctx context.Context, roleID string, permissions []string) error

	// DeleteRole removes a role (fails while users still reference it).
	DeleteRole(ctx context.Context, roleID string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllUserRefreshTokens bulk revocation (logout-all, password reset).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// RevokeSessionRefreshTokens revokes the tokens of one session (logout).
	RevokeSessionRefreshTokens(ctx context.Context, sessionID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type APIKeys interface {
	// CreateAPIKey stores a new key record (secret already hashed).
	CreateAPIKey(ctx context.Context, k domain.APIKey) error

	// GetAPIKeyByID fetches a key by its public ID.
	GetAPIKeyByID(ctx context.Context, id string) (domain.APIKey, error)

	// ListUserAPIKeys returns the user's keys, newest first.
	ListUserAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error)

	// TouchLastUsed bumps last_used_at.
	TouchLastUsed(ctx context.Context, id string, at time.Time) error

	// RevokeAPIKey flips revoked=1.
	RevokeAPIKey(ctx context.Context, id string) error
}

type BackupCodes interface {
	// CreateBackupCode stores a backup code hash for a user.
	CreateBackupCode(ctx context.Context, userID string, codeHash string) error

	// ListUserBackupCodes returns the stored hashes for verification.
	ListUserBackupCodes(ctx context.Context, userID string) ([]string, error)

	// DeleteBackupCode removes a specific backup code after use.
	DeleteBackupCode(ctx context.Context, userID string, codeHash string) error

	// DeleteAllBackupCodes removes all backup codes for a user.
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountUserBackupCodes returns the number of remaining codes.
	CountUserBackupCodes(ctx context.Context, userID string) (int, error)
}
