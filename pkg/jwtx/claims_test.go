package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	c := NewAccessClaims(
		"user-1", "sess-1", "tenant-1",
		[]string{"admin"}, []string{AMRPassword, AMRMFA},
		true, true,
		DefaultAccessTokenTTL,
		"gatewarden",
		[]string{"api"},
		now,
	)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "sess-1", c.SID)
	require.Equal(t, "tenant-1", c.TenantID)
	require.Equal(t, []string{"admin"}, c.Roles)
	require.True(t, c.MFAEnabled)
	require.True(t, c.MFAVerified)
	require.NotEmpty(t, c.ID)
	require.Equal(t, now.Add(DefaultAccessTokenTTL).Unix(), c.ExpiresAt.Unix())
}

func TestMFAPending(t *testing.T) {
	t.Parallel()

	pending := Claims{MFAEnabled: true, MFAVerified: false}
	require.True(t, pending.MFAPending())

	verified := Claims{MFAEnabled: true, MFAVerified: true}
	require.False(t, verified.MFAPending())

	noMFA := Claims{MFAEnabled: false}
	require.False(t, noMFA.MFAPending())
}

func TestValidateIssuer(t *testing.T) {
	t.Parallel()

	c := Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "gatewarden"}}
	require.NoError(t, c.ValidateIssuer("gatewarden"))
	require.NoError(t, c.ValidateIssuer("")) // nothing to enforce
	require.ErrorIs(t, c.ValidateIssuer("other"), ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	t.Parallel()

	c := Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"api", "web"}}}
	require.NoError(t, c.ValidateAudience(nil))
	require.NoError(t, c.ValidateAudience([]string{"api"}))
	require.NoError(t, c.ValidateAudience([]string{"missing", "web"}))
	require.ErrorIs(t, c.ValidateAudience([]string{"missing"}), ErrAudience)
}

func TestValidateExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	valid := Claims{RegisteredClaims: jwt.RegisteredClaims{
		NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}}
	require.NoError(t, valid.ValidateExpiry())

	expired := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	}}
	require.ErrorIs(t, expired.ValidateExpiry(), ErrExpired)
	require.NoError(t, expired.ValidateExpiryWithLeeway(2*time.Minute))

	future := Claims{RegisteredClaims: jwt.RegisteredClaims{
		NotBefore: jwt.NewNumericDate(now.Add(time.Minute)),
	}}
	require.ErrorIs(t, future.ValidateExpiry(), ErrNotYetValid)
}
