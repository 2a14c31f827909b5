package service

import (
	"context"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/domain"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/idx"
	"github.com/gatewarden/gatewarden/pkg/jwtx"
)

// TokenMinter signs access tokens and creates the matching refresh token
// records. Shared by login, MFA completion and refresh rotation so every
// path mints pairs identically.
type TokenMinter struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// MintPair signs an access token and persists a refresh token record
// through the given repo (pass a Tx-scoped repo to make minting part of a
// larger atomic operation).
//
// A pending pair (verified=false) gets its access TTL capped so a stalled
// MFA challenge cannot be replayed for long.
func (m *TokenMinter) MintPair(
	ctx context.Context,
	tokens store.RefreshTokens,
	user domain.User,
	sessionID string,
	roleNames []string,
	amr []string,
	verified bool,
	now time.Time,
) (domain.TokenPair, error) {
	accessTTL := m.AccessTTL
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	if !verified && accessTTL > jwtx.PendingAccessTokenTTL {
		accessTTL = jwtx.PendingAccessTokenTTL
	}
	refreshTTL := m.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	claims := jwtx.NewAccessClaims(
		user.ID, sessionID, user.TenantID,
		roleNames, amr,
		user.MFAActive(), verified,
		accessTTL, m.Issuer, m.Audience, now,
	)
	accessToken, err := m.KeyManager.GetSigner().Sign(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	record := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		SessionID: sessionID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		AMR:       amr,
		ExpiresAt: now.Add(refreshTTL),
	}
	if err := tokens.CreateRefreshToken(ctx, record); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    int(accessTTL.Seconds()),
	}, nil
}

// roleNamesFor resolves the user's role IDs to names for embedding in
// token claims.
func roleNamesFor(ctx context.Context, roles store.Roles, user domain.User) ([]string, error) {
	names := make([]string, 0, len(user.RoleIDs))
	for _, id := range user.RoleIDs {
		role, err := roles.GetRoleByID(ctx, id)
		if err != nil {
			return nil, err
		}
		names = append(names, role.Name)
	}
	return names, nil
}
