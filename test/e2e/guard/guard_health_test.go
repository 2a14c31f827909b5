package guard_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHealthEndpoints verifies liveness, readiness and key publication.
func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupGuardContainer(t)
	defer cleanup()

	resp, payload := getJSON(t, baseURL, "/livez")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", payload["status"])
	require.NotEmpty(t, payload["version"])

	resp, payload = getJSON(t, baseURL, "/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", payload["status"])

	checks, _ := payload["checks"].(map[string]any)
	require.Equal(t, "ok", checks["database"])
	require.Equal(t, "ok", checks["signer"])
}

// TestJWKSEndpoint verifies the verification keys are published for
// downstream services, and that nothing private leaks with them.
func TestJWKSEndpoint(t *testing.T) {
	baseURL, cleanup := setupGuardContainer(t)
	defer cleanup()

	resp, payload := getJSON(t, baseURL, "/.well-known/jwks.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	keys, _ := payload["keys"].([]any)
	require.Len(t, keys, 1, "Container runs with a single signing key")

	key, _ := keys[0].(map[string]any)
	require.Equal(t, "OKP", key["kty"], "EdDSA keys publish as OKP")
	require.NotEmpty(t, key["kid"])
	require.NotEmpty(t, key["x"], "Public component should be present")
	require.Empty(t, key["d"], "Private component must never be published")
}
