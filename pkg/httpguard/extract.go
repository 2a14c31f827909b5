package httpguard

import (
	"net/http"
	"strings"
)

// ExtractMode controls where the guard looks for the bearer credential.
// It is fixed per Guard instance, chosen once per deployment, never mixed
// per-request.
type ExtractMode int

const (
	// ExtractHeader reads only the Authorization header.
	ExtractHeader ExtractMode = iota
	// ExtractCookie reads only the configured cookie.
	ExtractCookie
	// ExtractHeaderThenCookie prefers the header, falling back to the cookie.
	ExtractHeaderThenCookie
)

// DefaultAccessCookie is the cookie name used when none is configured.
const DefaultAccessCookie = "gw_access"

// APIKeyHeader carries API key credentials. API keys are header-only in
// every extraction mode; cookies are a browser concern and API keys are not.
const APIKeyHeader = "X-API-Key"

// extract pulls the raw credential from the request. The bool reports
// whether any credential was found.
func (g *Guard) extract(r *http.Request) (raw string, source CredentialSource, ok bool) {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return strings.TrimSpace(key), SourceAPIKey, true
	}

	if g.Extract == ExtractHeader || g.Extract == ExtractHeaderThenCookie {
		if tok, ok := bearerFromHeader(r); ok {
			return tok, SourceBearer, true
		}
		if g.Extract == ExtractHeader {
			return "", SourceNone, false
		}
	}

	cookieName := g.CookieName
	if cookieName == "" {
		cookieName = DefaultAccessCookie
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, SourceBearer, true
	}

	return "", SourceNone, false
}

func bearerFromHeader(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	return tok, tok != ""
}
