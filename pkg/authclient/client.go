package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"
)

// CredentialMode selects how the access credential travels to the server.
type CredentialMode int

const (
	// ModeHeader sends the access token as "Authorization: Bearer <token>"
	// and receives the refresh token in response bodies.
	ModeHeader CredentialMode = iota

	// ModeCookie relies on HttpOnly cookies managed by the server. The
	// refresh token never reaches client code in this mode.
	ModeCookie
)

// DefaultCookieName matches the guard service's default access cookie.
const DefaultCookieName = "gw_access"

// Config configures a Client. BaseURL is required; everything else has a
// usable default.
type Config struct {
	BaseURL string

	// HTTPClient overrides the default 10s-timeout client. In ModeCookie a
	// cookie jar is installed if the client has none.
	HTTPClient *http.Client

	Mode       CredentialMode
	CookieName string

	// Store persists credentials across client instances. Defaults to an
	// in-memory store.
	Store CredentialStore

	// Timeout bounds each individual dispatch. Zero leaves it to the
	// HTTP client's own timeout.
	Timeout time.Duration
}

// clientState is the client's explicitly owned mutable state: the current
// pair plus the cached profile. It has a single writer path (the methods
// below, all holding mu) and is never reachable by subscribers or callers
// except as copies.
type clientState struct {
	pair    TokenPair
	profile *Profile
}

// Client is the consumer-side surface of the auth service: login, MFA
// completion, refresh, logout and guarded request dispatch, with all
// refresh traffic funnelled through a single-flight Coordinator.
//
// Safe for concurrent use by multiple goroutines.
type Client struct {
	transport  Transport
	store      CredentialStore
	mode       CredentialMode
	cookieName string
	timeout    time.Duration

	events *Dispatcher
	coord  *Coordinator

	mu    sync.RWMutex
	state clientState
}

// New creates a Client from the config.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Mode == ModeCookie && httpClient.Jar == nil {
		// cookiejar.New only errors on bad options; nil options cannot fail.
		jar, _ := cookiejar.New(nil)
		httpClient.Jar = jar
	}

	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	c := &Client{
		transport: &HTTPTransport{
			BaseURL: trimSlash(cfg.BaseURL),
			Client:  httpClient,
		},
		store:      store,
		mode:       cfg.Mode,
		cookieName: cookieName,
		timeout:    cfg.Timeout,
		events:     NewDispatcher(),
	}
	c.coord = NewCoordinator(c.transport, c.attachCredentials, c.doRefresh)
	return c
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// Do dispatches a guarded request through the refresh coordinator.
func (c *Client) Do(ctx context.Context, desc *RequestDescriptor) (*Response, error) {
	if desc.Timeout == 0 {
		desc.Timeout = c.timeout
	}
	return c.coord.Execute(ctx, desc)
}

// Coordinator exposes the refresh coordinator, mainly for explicit Cancel.
func (c *Client) Coordinator() *Coordinator {
	return c.coord
}

// Profile returns a copy of the cached profile, or nil when anonymous.
func (c *Client) Profile() *Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state.profile == nil {
		return nil
	}
	cp := *c.state.profile
	return &cp
}

// attachCredentials is the coordinator's AttachFunc. In header mode it sets
// the bearer header from the current pair; in cookie mode the HTTP client's
// jar carries the credential and nothing is attached here.
func (c *Client) attachCredentials(ctx context.Context, req *Request) error {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if c.mode == ModeCookie {
		return nil
	}

	pair, err := c.currentPair(ctx)
	if err != nil {
		return err
	}
	if pair.AccessToken == "" {
		req.Header.Del("Authorization")
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	return nil
}

// currentPair returns the in-memory pair, falling back to the store (and
// warming the in-memory copy) when the client was just constructed.
func (c *Client) currentPair(ctx context.Context) (TokenPair, error) {
	c.mu.RLock()
	pair := c.state.pair
	c.mu.RUnlock()
	if !pair.Empty() {
		return pair, nil
	}

	creds, err := c.store.Load(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	if creds == nil {
		return TokenPair{}, nil
	}

	c.mu.Lock()
	if c.state.pair.Empty() {
		c.state.pair = creds.Pair
		if c.state.profile == nil {
			c.state.profile = creds.Profile
		}
	}
	pair = c.state.pair
	c.mu.Unlock()
	return pair, nil
}

// setCredentials replaces the pair (and optionally the profile) in both the
// in-memory state and the store.
func (c *Client) setCredentials(ctx context.Context, pair TokenPair, profile *Profile) error {
	c.mu.Lock()
	c.state.pair = pair
	if profile != nil {
		c.state.profile = profile
	}
	creds := &Credentials{
		Pair:       pair,
		Profile:    c.state.profile,
		ObtainedAt: time.Now(),
	}
	c.mu.Unlock()

	return c.store.Save(ctx, creds)
}

// clearCredentials wipes both the in-memory state and the store.
func (c *Client) clearCredentials(ctx context.Context) error {
	c.mu.Lock()
	c.state = clientState{}
	c.mu.Unlock()

	return c.store.Clear(ctx)
}

// jsonRequest builds a request descriptor with a JSON body.
func (c *Client) jsonRequest(method, path string, payload any) (*RequestDescriptor, error) {
	desc := &RequestDescriptor{
		Request: Request{
			Method: method,
			Path:   path,
			Header: http.Header{},
		},
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("authclient: encode request: %w", err)
		}
		desc.Body = body
		desc.Header.Set("Content-Type", "application/json")
	}
	return desc, nil
}

// Event subscriptions. Each returns a cancel func; fan-out is synchronous
// and survives panicking subscribers.

// OnAuthStateChanged fires after login and MFA completion.
func (c *Client) OnAuthStateChanged(fn func(profile *Profile)) (cancel func()) {
	return c.events.Subscribe(func(ev Event) {
		if ev.Kind == EventAuthStateChanged {
			fn(ev.Profile)
		}
	})
}

// OnTokenRefreshed fires after each successful refresh rotation.
func (c *Client) OnTokenRefreshed(fn func()) (cancel func()) {
	return c.events.Subscribe(func(ev Event) {
		if ev.Kind == EventTokenRefreshed {
			fn()
		}
	})
}

// OnLogout fires on explicit logout and on the implicit logout caused by a
// failed refresh.
func (c *Client) OnLogout(fn func()) (cancel func()) {
	return c.events.Subscribe(func(ev Event) {
		if ev.Kind == EventLogout {
			fn()
		}
	})
}

// OnError fires when an operation fails with a typed error.
func (c *Client) OnError(fn func(err error)) (cancel func()) {
	return c.events.Subscribe(func(ev Event) {
		if ev.Kind == EventError {
			fn(ev.Err)
		}
	})
}
