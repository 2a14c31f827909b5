package guard_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies the login endpoint is rate limited.
// It carries strict limits (5 req/min) to slow down credential stuffing.
func TestRateLimitLoginEndpoint(t *testing.T) {
	baseURL, cleanup := setupGuardContainerWithDefaultRateLimits(t)
	defer cleanup()

	bootstrapGuard(t, baseURL)

	// Burn through the strict burst with bad credentials; the request
	// after the burst must be limited rather than evaluated.
	var lastStatus int
	for i := range 6 {
		resp, payload := postJSON(t, baseURL, "/v1/auth/login", "", map[string]string{
			"username": "wronguser",
			"password": "wrongpass",
		})
		if i < 5 {
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode,
				"Should not be rate limited yet (request %d): %v", i+1, payload)
		} else {
			lastStatus = resp.StatusCode
		}
	}

	require.Equal(t, http.StatusTooManyRequests, lastStatus, "Should be rate limited after 5 requests")
	t.Logf("Successfully rate limited after 5 requests to /v1/auth/login")
}

// TestRateLimitBootstrapEndpoint verifies the bootstrap endpoint is rate
// limited, since it sits in front of any authentication at all.
func TestRateLimitBootstrapEndpoint(t *testing.T) {
	baseURL, cleanup := setupGuardContainerWithDefaultRateLimits(t)
	defer cleanup()

	// Hammer bootstrap with a bad token. The limiter kicks in before any
	// of them could succeed.
	var limited bool
	for range 10 {
		resp, _ := postJSON(t, baseURL, "/v1/bootstrap", "", map[string]any{
			"token":          "wrong-token",
			"admin_username": "x",
			"admin_password": "y",
			"roles":          defaultRoleDefinitions(),
		})
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	require.True(t, limited, "Bootstrap should be rate limited")
}

// TestRateLimitSparesHealthEndpoints verifies liveness probes stay outside
// the strict buckets even when login is being hammered.
func TestRateLimitSparesHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupGuardContainerWithDefaultRateLimits(t)
	defer cleanup()

	bootstrapGuard(t, baseURL)

	for range 6 {
		postJSON(t, baseURL, "/v1/auth/login", "", map[string]string{
			"username": "wronguser",
			"password": "wrongpass",
		})
	}

	resp, payload := getJSON(t, baseURL, "/livez")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", payload["status"], "Probes should not share the login bucket")
}
