package guard_test

import (
	"net/http"
	"testing"

	"github.com/gatewarden/gatewarden/pkg/authclient"
	"github.com/stretchr/testify/require"
)

// TestBootstrapLoginVerify tests the complete first-run flow:
// 1. Bootstrap the service
// 2. Login with username/password
// 3. Verify the session through a guarded endpoint
// 4. Logout and confirm the credential is dead
func TestBootstrapLoginVerify(t *testing.T) {
	baseURL, cleanup := setupGuardContainer(t)
	defer cleanup()

	adminUserID := bootstrapGuard(t, baseURL)
	t.Logf("Bootstrap successful, admin user ID: %s", adminUserID)

	client := loginAdmin(t, baseURL)

	result, err := client.VerifySession(t.Context())
	require.NoError(t, err)
	require.Equal(t, adminUserID, result.UserID)
	require.NotEmpty(t, result.SessionID)
	require.Contains(t, result.Roles, "admin")
	require.True(t, result.MFAVerified, "No second factor enrolled, so the session is fully verified")

	require.NoError(t, client.Logout(t.Context()))

	// The client cleared its credentials, so the next guarded call fails
	// before it even reaches the wire.
	_, err = client.VerifySession(t.Context())
	assertAuthCode(t, err, authclient.CodeNoCredential, "Verify after logout")
}

// TestLoginRejectsBadCredentials verifies both unknown users and wrong
// passwords produce the same opaque rejection.
func TestLoginRejectsBadCredentials(t *testing.T) {
	baseURL, cleanup := setupGuardContainer(t)
	defer cleanup()

	bootstrapGuard(t, baseURL)
	client := newClient(baseURL)

	_, err := client.Login(t.Context(), adminUsername, "not-the-password")
	assertAuthCode(t, err, authclient.CodeInvalidCredential, "Wrong password")

	_, err = client.Login(t.Context(), "nobody", adminPassword)
	assertAuthCode(t, err, authclient.CodeInvalidCredential, "Unknown user")
}

// TestVerifyRequiresCredential verifies anonymous requests are rejected with
// a challenge header.
func TestVerifyRequiresCredential(t *testing.T) {
	baseURL, cleanup := setupGuardContainer(t)
	defer cleanup()

	bootstrapGuard(t, baseURL)

	resp, payload := getJSON(t, baseURL, "/v1/auth/verify")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "no_credential", payload["error"])
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
}

// TestLogoutAllRevokesEverySession verifies logout_all kills sessions the
// caller is not currently using.
func TestLogoutAllRevokesEverySession(t *testing.T) {
	baseURL, cleanup := setupGuardContainer(t)
	defer cleanup()

	bootstrapGuard(t, baseURL)

	first := loginAdmin(t, baseURL)
	second := loginAdmin(t, baseURL)

	require.NoError(t, second.LogoutAll(t.Context()))

	// The first client still holds its tokens locally, but the server has
	// revoked the session behind them and the refresh token with it.
	_, err := first.VerifySession(t.Context())
	assertAuthCode(t, err, authclient.CodeSessionNotFound, "Verify on a mass-revoked session")
}

// TestDeactivatedUserIsLockedOut verifies deactivation cuts off both login
// and existing sessions.
func TestDeactivatedUserIsLockedOut(t *testing.T) {
	baseURL, cleanup := setupGuardContainer(t)
	defer cleanup()

	bootstrapGuard(t, baseURL)
	admin := loginAdmin(t, baseURL)

	userID := createUser(t, admin, memberUsername, memberPassword, "member")

	member := newClient(baseURL)
	_, err := member.Login(t.Context(), memberUsername, memberPassword)
	require.NoError(t, err)

	resp, _ := doGuarded(t, admin, http.MethodPost, "/v1/users/"+userID+"/active", map[string]any{
		"active": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = member.VerifySession(t.Context())
	assertAuthCode(t, err, authclient.CodeSessionNotFound, "Verify on a deactivated account")

	_, err = member.Login(t.Context(), memberUsername, memberPassword)
	assertAuthCode(t, err, authclient.CodeAccountInactive, "Login on a deactivated account")
}
