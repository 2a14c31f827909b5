package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAuthServer is a minimal in-process stand-in for the guard service.
type fakeAuthServer struct {
	*httptest.Server

	accessToken  atomic.Value // string
	refreshToken atomic.Value // string
	refreshCalls atomic.Int32
	refuseAll    atomic.Bool // reject every refresh attempt
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()

	f := &fakeAuthServer{}
	f.accessToken.Store("at-1")
	f.refreshToken.Store("rt-1")

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.Password != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "invalid_credential",
				"error_description": "bad username or password",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  f.accessToken.Load(),
			"refresh_token": f.refreshToken.Load(),
			"token_type":    "Bearer",
			"expires_in":    900,
			"user": map[string]any{
				"user_id":  "u1",
				"username": body.Username,
				"roles":    []string{"member"},
			},
		})
	})

	mux.HandleFunc("POST /v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)

		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if f.refuseAll.Load() || body.RefreshToken != f.refreshToken.Load() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "invalid_credential",
				"error_description": "refresh token revoked",
			})
			return
		}

		// Rotation: the old pair stops working the moment the new one exists.
		f.accessToken.Store("at-2")
		f.refreshToken.Store("rt-2")
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at-2",
			"refresh_token": "rt-2",
			"token_type":    "Bearer",
			"expires_in":    900,
		})
	})

	mux.HandleFunc("GET /v1/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.accessToken.Load().(string) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "invalid_credential",
				"error_description": "the credential is invalid, expired or malformed",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id":      "u1",
			"session_id":   "s1",
			"roles":        []string{"member"},
			"mfa_verified": true,
		})
	})

	mux.HandleFunc("POST /v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginVerifyLogout(t *testing.T) {
	srv := newFakeAuthServer(t)
	client := New(Config{BaseURL: srv.URL})

	var stateChanges, logouts atomic.Int32
	client.OnAuthStateChanged(func(p *Profile) {
		stateChanges.Add(1)
		require.NotNil(t, p)
		require.Equal(t, "alice", p.Username)
	})
	client.OnLogout(func() { logouts.Add(1) })

	result, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	require.False(t, result.MFARequired)
	require.Equal(t, "at-1", result.Pair.AccessToken)
	require.Equal(t, "u1", result.Profile.UserID)

	verify, err := client.VerifySession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", verify.UserID)
	require.Equal(t, "s1", verify.SessionID)

	require.NoError(t, client.Logout(context.Background()))
	require.Nil(t, client.Profile())
	require.Equal(t, int32(1), stateChanges.Load())
	require.Equal(t, int32(1), logouts.Load())

	// Logged out: the guarded call now fails with a typed 401.
	_, err = client.VerifySession(context.Background())
	ae, ok := IsAuthError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, ae.StatusCode)
}

func TestLoginBadPassword(t *testing.T) {
	srv := newFakeAuthServer(t)
	client := New(Config{BaseURL: srv.URL})

	var errorEvents atomic.Int32
	client.OnError(func(err error) { errorEvents.Add(1) })

	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Equal(t, CodeInvalidCredential, CodeOf(err))
	require.Equal(t, int32(1), errorEvents.Load())
}

func TestExpiredTokenRefreshedAndRetried(t *testing.T) {
	srv := newFakeAuthServer(t)
	client := New(Config{BaseURL: srv.URL})

	var refreshed atomic.Int32
	client.OnTokenRefreshed(func() { refreshed.Add(1) })

	_, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	// Expire the pair server-side: at-1 no longer verifies, rt-1 still
	// exchanges. The guarded call must refresh and retry transparently.
	srv.accessToken.Store("at-1-expired-here")

	verify, err := client.VerifySession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", verify.UserID)
	require.Equal(t, int32(1), srv.refreshCalls.Load())
	require.Equal(t, int32(1), refreshed.Load())
}

func TestRefreshFailureImplicitLogout(t *testing.T) {
	srv := newFakeAuthServer(t)
	client := New(Config{BaseURL: srv.URL})

	var logouts atomic.Int32
	var errCodes []string
	client.OnLogout(func() { logouts.Add(1) })
	client.OnError(func(err error) { errCodes = append(errCodes, CodeOf(err)) })

	_, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	srv.accessToken.Store("rotated-away")
	srv.refuseAll.Store(true)

	// The caller of a guarded request sees the original 401, not the
	// refresh failure.
	_, err = client.VerifySession(context.Background())
	ae, ok := IsAuthError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	require.Equal(t, CodeInvalidCredential, ae.Code)

	// The refresh failure performed an implicit logout.
	require.Equal(t, int32(1), logouts.Load())
	require.Contains(t, errCodes, CodeRefreshFailed)
	require.Nil(t, client.Profile())

	creds, err := client.store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, creds, "stored credentials must be cleared")
}

func TestExplicitRefreshRotatesPair(t *testing.T) {
	srv := newFakeAuthServer(t)
	client := New(Config{BaseURL: srv.URL})

	_, err := client.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	pair, err := client.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "at-2", pair.AccessToken)
	require.Equal(t, "rt-2", pair.RefreshToken)

	verify, err := client.VerifySession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", verify.UserID)
	require.Equal(t, int32(1), srv.refreshCalls.Load())
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, creds)

	require.NoError(t, store.Save(ctx, &Credentials{
		Pair:    TokenPair{AccessToken: "at", RefreshToken: "rt"},
		Profile: &Profile{UserID: "u1"},
	}))

	creds, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "at", creds.Pair.AccessToken)
	require.Equal(t, "u1", creds.Profile.UserID)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx)) // clearing empty is a no-op

	creds, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, creds)
}
