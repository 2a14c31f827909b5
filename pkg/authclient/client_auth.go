package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// loginResponse is the service's login/MFA/refresh response shape. In
// cookie mode the refresh token is absent; the server keeps it in an
// HttpOnly cookie.
type loginResponse struct {
	TokenPair
	MFARequired bool     `json:"mfa_required,omitempty"`
	MFAMethods  []string `json:"mfa_methods,omitempty"`
	User        *Profile `json:"user,omitempty"`
}

// Login authenticates with username and password.
//
// When the account has MFA enabled the result carries MFARequired=true and
// the stored pair is a short-lived pending pair: only CompleteMFA accepts
// it, every other guarded call is rejected with mfa_required until the
// second factor is verified.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	desc, err := c.jsonRequest(http.MethodPost, "/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	desc.SkipRefresh = true
	desc.Timeout = c.timeout

	resp, err := c.coord.Execute(ctx, desc)
	if err != nil {
		return nil, err
	}
	if ae := resp.AuthErrorFromResponse(); ae != nil {
		c.events.Emit(Event{Kind: EventError, Err: ae})
		return nil, ae
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("authclient: decode login response: %w", err)
	}

	if err := c.setCredentials(ctx, body.TokenPair, body.User); err != nil {
		return nil, err
	}
	c.events.Emit(Event{Kind: EventAuthStateChanged, Profile: c.Profile()})

	result := &LoginResult{
		Pair:        body.TokenPair,
		MFARequired: body.MFARequired,
		MFAMethods:  body.MFAMethods,
	}
	if body.User != nil {
		result.Profile = *body.User
	}
	return result, nil
}

// CompleteMFA verifies the second factor and upgrades the pending pair to
// a fully verified one. method is "totp" or "backup_codes".
func (c *Client) CompleteMFA(ctx context.Context, method, code string) (*LoginResult, error) {
	desc, err := c.jsonRequest(http.MethodPost, "/v1/auth/mfa/verify", map[string]string{
		"method": method,
		"code":   code,
	})
	if err != nil {
		return nil, err
	}
	// A 401 here means the pending pair itself is bad; refreshing a
	// pending pair cannot fix that.
	desc.SkipRefresh = true
	desc.Timeout = c.timeout

	resp, err := c.coord.Execute(ctx, desc)
	if err != nil {
		return nil, err
	}
	if ae := resp.AuthErrorFromResponse(); ae != nil {
		c.events.Emit(Event{Kind: EventError, Err: ae})
		return nil, ae
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("authclient: decode mfa response: %w", err)
	}

	if err := c.setCredentials(ctx, body.TokenPair, body.User); err != nil {
		return nil, err
	}
	c.events.Emit(Event{Kind: EventAuthStateChanged, Profile: c.Profile()})

	result := &LoginResult{Pair: body.TokenPair}
	if body.User != nil {
		result.Profile = *body.User
	}
	return result, nil
}

// Refresh exchanges the refresh token for a new pair via the single-flight
// coordinator. Concurrent callers share one underlying exchange.
func (c *Client) Refresh(ctx context.Context) (TokenPair, error) {
	return c.coord.Refresh(ctx)
}

// Logout revokes the current session server-side, cancels any in-flight
// refresh and clears stored credentials. Local teardown happens even when
// the server call fails; the returned error reports the server-side
// outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.logout(ctx, "/v1/auth/logout")
}

// LogoutAll revokes every session for the current user, then tears down
// local state like Logout.
func (c *Client) LogoutAll(ctx context.Context) error {
	return c.logout(ctx, "/v1/auth/logout_all")
}

func (c *Client) logout(ctx context.Context, path string) error {
	desc, err := c.jsonRequest(http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	desc.SkipRefresh = true
	desc.Timeout = c.timeout

	resp, sendErr := c.coord.Execute(ctx, desc)

	// Cancel before clearing so a stale refresh cannot complete after the
	// session is gone and resurrect the cleared credentials.
	c.coord.Cancel()
	if err := c.clearCredentials(ctx); err != nil {
		return err
	}
	c.events.Emit(Event{Kind: EventLogout})

	if sendErr != nil {
		return sendErr
	}
	if ae := resp.AuthErrorFromResponse(); ae != nil {
		return ae
	}
	return nil
}

// VerifySession asks the service to describe the session behind the current
// access token. Goes through the coordinator, so an expired token is
// refreshed and retried transparently.
func (c *Client) VerifySession(ctx context.Context) (*VerifyResult, error) {
	desc, err := c.jsonRequest(http.MethodGet, "/v1/auth/verify", nil)
	if err != nil {
		return nil, err
	}
	desc.Timeout = c.timeout

	resp, err := c.coord.Execute(ctx, desc)
	if err != nil {
		return nil, err
	}
	if ae := resp.AuthErrorFromResponse(); ae != nil {
		c.events.Emit(Event{Kind: EventError, Err: ae})
		return nil, ae
	}

	var result VerifyResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("authclient: decode verify response: %w", err)
	}
	return &result, nil
}

// doRefresh is the coordinator's RefreshFunc: one actual exchange against
// the refresh endpoint.
//
// An HTTP-level rejection means the refresh token is no longer trustworthy,
// so the client performs an implicit logout: credentials are cleared and
// logout + error events fire. Transport failures (timeouts included) leave
// the stored credentials alone and surface as their own error codes.
func (c *Client) doRefresh(ctx context.Context) (TokenPair, error) {
	req := &Request{
		Method:  http.MethodPost,
		Path:    "/v1/auth/refresh",
		Header:  http.Header{},
		Timeout: c.timeout,
	}

	if c.mode == ModeHeader {
		pair, err := c.currentPair(ctx)
		if err != nil {
			return TokenPair{}, err
		}
		if pair.RefreshToken == "" {
			return TokenPair{}, ErrNoCredential
		}
		body, err := json.Marshal(map[string]string{"refresh_token": pair.RefreshToken})
		if err != nil {
			return TokenPair{}, fmt.Errorf("authclient: encode refresh request: %w", err)
		}
		req.Body = body
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return TokenPair{}, err
	}
	if resp.AuthErrorFromResponse() != nil {
		refreshErr := &AuthError{
			Code:       CodeRefreshFailed,
			Message:    "the refresh token was rejected; credentials cleared",
			StatusCode: resp.StatusCode,
		}
		_ = c.clearCredentials(ctx)
		c.events.Emit(Event{Kind: EventError, Err: refreshErr})
		c.events.Emit(Event{Kind: EventLogout})
		return TokenPair{}, refreshErr
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return TokenPair{}, fmt.Errorf("authclient: decode refresh response: %w", err)
	}

	if err := c.setCredentials(ctx, body.TokenPair, body.User); err != nil {
		return TokenPair{}, err
	}
	c.events.Emit(Event{Kind: EventTokenRefreshed})
	return body.TokenPair, nil
}
