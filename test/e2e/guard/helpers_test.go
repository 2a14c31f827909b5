package guard_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/gatewarden/gatewarden/pkg/authclient"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for guard service end-to-end tests.
 * This includes container setup, bootstrap, and guarded request helpers.
 */

const (
	testImageName = "gatewarden-test:latest"

	bootstrapToken = "test-bootstrap-token-12345"
	adminUsername  = "admin"
	adminPassword  = "Admin123!"
	memberUsername = "member"
	memberPassword = "Member123!"
)

// defaultRoleDefinitions returns the standard role definitions used in tests.
func defaultRoleDefinitions() []map[string]any {
	return []map[string]any{
		{
			"name":        "admin",
			"permissions": []string{"users:read", "users:write", "roles:read", "roles:write"},
		},
		{
			"name":        "member",
			"permissions": []string{"profile:read", "profile:write"},
		},
	}
}

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Guard Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Guard Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image if it doesn't exist.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/gatewarden/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// baseContainerEnv is the environment shared by every container variant.
func baseContainerEnv() map[string]string {
	return map[string]string{
		"BOOTSTRAP_TOKEN":     bootstrapToken,
		"GUARD_DATABASE_FILE": "/tmp/gatewarden.db",
		"GUARD_PEPPER_FILE":   "/tmp/pepper",
		"GUARD_ISSUER":        "gatewarden-e2e",
		"GUARD_AUDIENCE":      "api",
		"GUARD_ALGORITHM":     "EdDSA",
		"GUARD_NUM_KEYS":      "1",
		"ENV":                 "test",
		"LOG_LEVEL":           "info",
		"LOG_FORMAT":          "json",
	}
}

// setupGuardContainer starts the guard service in a container and returns
// the base URL. Rate limits are raised well above anything the tests can
// hit; rate limiting itself is covered by the default-limits variant below.
func setupGuardContainer(t *testing.T) (string, func()) {
	t.Helper()

	env := baseContainerEnv()
	env["RATELIMIT_STRICT_REQUESTS"] = "1000"
	env["RATELIMIT_STRICT_WINDOW_SEC"] = "60"
	env["RATELIMIT_STRICT_BURST"] = "1000"
	env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
	env["RATELIMIT_MODERATE_BURST"] = "1000"

	return startContainer(t, env)
}

// setupGuardContainerWithDefaultRateLimits starts the guard service with
// DEFAULT rate limits. This is specifically for testing that rate limiting
// actually works; everything else should use setupGuardContainer.
func setupGuardContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, baseContainerEnv())
}

// setupGuardContainerCookieMode starts the guard service with cookie-based
// credential transport enabled.
func setupGuardContainerCookieMode(t *testing.T) (string, func()) {
	t.Helper()

	env := baseContainerEnv()
	env["GUARD_COOKIE_MODE"] = "true"
	env["RATELIMIT_STRICT_REQUESTS"] = "1000"
	env["RATELIMIT_STRICT_BURST"] = "1000"
	env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
	env["RATELIMIT_MODERATE_BURST"] = "1000"

	return startContainer(t, env)
}

func startContainer(t *testing.T, env map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// bootstrapGuard seeds the instance with the default roles and the first
// admin account, returning the admin user ID.
func bootstrapGuard(t *testing.T, baseURL string) string {
	t.Helper()

	body := map[string]any{
		"token":          bootstrapToken,
		"admin_username": adminUsername,
		"admin_password": adminPassword,
		"roles":          defaultRoleDefinitions(),
	}

	resp, payload := postJSON(t, baseURL, "/v1/bootstrap", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, "Bootstrap should succeed: %v", payload)
	adminID, _ := payload["admin_user_id"].(string)
	require.NotEmpty(t, adminID, "Admin user ID should not be empty")

	return adminID
}

// newClient creates an authclient in header mode against the container.
func newClient(baseURL string) *authclient.Client {
	return authclient.New(authclient.Config{BaseURL: baseURL})
}

// jsonDescriptor builds a guarded request descriptor with a JSON body.
func jsonDescriptor(t *testing.T, method, path string, payload any) *authclient.RequestDescriptor {
	t.Helper()

	desc := &authclient.RequestDescriptor{
		Request: authclient.Request{
			Method: method,
			Path:   path,
			Header: http.Header{},
		},
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		desc.Body = body
		desc.Header.Set("Content-Type", "application/json")
	}
	return desc
}

// doGuarded dispatches a guarded JSON request through the client's refresh
// coordinator and decodes the response body when there is one.
func doGuarded(t *testing.T, client *authclient.Client, method, path string, payload any) (*authclient.Response, map[string]any) {
	t.Helper()

	resp, err := client.Do(t.Context(), jsonDescriptor(t, method, path, payload))
	require.NoError(t, err)

	return resp, decodeBody(t, resp.Body)
}

// postJSON sends an unguarded JSON request straight through the transport,
// optionally with a bearer token. Used for bootstrap and negative tests
// that must bypass the coordinator's refresh-and-retry behavior.
func postJSON(t *testing.T, baseURL, path, token string, payload any) (*authclient.Response, map[string]any) {
	t.Helper()

	req := &authclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{},
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		req.Body = body
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := authclient.NewHTTPTransport(baseURL).Send(t.Context(), req)
	require.NoError(t, err)

	return resp, decodeBody(t, resp.Body)
}

// getJSON fetches a path without credentials and decodes the JSON body.
func getJSON(t *testing.T, baseURL, path string) (*authclient.Response, map[string]any) {
	t.Helper()

	resp, err := authclient.NewHTTPTransport(baseURL).Send(t.Context(), &authclient.Request{
		Method: http.MethodGet,
		Path:   path,
		Header: http.Header{},
	})
	require.NoError(t, err)

	return resp, decodeBody(t, resp.Body)
}

// decodeBody decodes a JSON body, returning nil for empty bodies and for
// top-level arrays (list endpoints) where the caller only checks status.
func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()

	if len(body) == 0 {
		return nil
	}
	var payload any
	require.NoError(t, json.Unmarshal(body, &payload), "body should be JSON: %s", body)
	obj, _ := payload.(map[string]any)
	return obj
}

// loginAdmin logs the bootstrapped admin in and returns a ready-to-use
// client.
func loginAdmin(t *testing.T, baseURL string) *authclient.Client {
	t.Helper()

	client := newClient(baseURL)
	result, err := client.Login(t.Context(), adminUsername, adminPassword)
	require.NoError(t, err, "Admin login should succeed")
	require.False(t, result.MFARequired)
	assertTokenPair(t, result.Pair)

	return client
}

// createUser provisions a user through the admin API.
func createUser(t *testing.T, admin *authclient.Client, username, password string, roles ...string) string {
	t.Helper()

	resp, payload := doGuarded(t, admin, http.MethodPost, "/v1/users", map[string]any{
		"username": username,
		"password": password,
		"roles":    roles,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "User creation should succeed: %v", payload)
	id, _ := payload["id"].(string)
	require.NotEmpty(t, id)

	return id
}

// assertTokenPair verifies a pair has all required fields.
func assertTokenPair(t *testing.T, pair authclient.TokenPair) {
	t.Helper()
	require.NotEmpty(t, pair.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, pair.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "Bearer", pair.TokenType, "Token type should be Bearer")
	require.Positive(t, pair.ExpiresIn, "Expiry should be positive")
}

// assertAuthCode verifies an error is a typed auth error with the given code.
func assertAuthCode(t *testing.T, err error, code, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.Equal(t, code, authclient.CodeOf(err), "%s - unexpected error: %v", context, err)
}
