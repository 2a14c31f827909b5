package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
	"github.com/gatewarden/gatewarden/pkg/jwtx"
	"github.com/gatewarden/gatewarden/pkg/slogx"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpguard.Middleware

	keys      *jwtx.KeySet
	guard     *httpguard.Guard
	startTime time.Time
	version   string
	logger    *slog.Logger

	store store.Store

	// CookieMode switches credential issuance from JSON bodies to
	// HttpOnly cookies. The guard reads either, per its ExtractMode.
	CookieMode bool
	CookieName string

	AuthService      *service.AuthService
	TokenService     *service.TokenService
	SessionService   *service.SessionService
	MFAService       *service.MFAService
	RolesService     *service.RolesService
	APIKeyService    *service.APIKeyService
	UserService      *service.UserService
	BootstrapService *service.BootstrapService
}

func NewRouter(
	keys *jwtx.KeySet,
	guard *httpguard.Guard,
	version string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		keys:      keys,
		guard:     guard,
		startTime: time.Now(),
		version:   version,
		store:     st,
		logger:    logger,
	}

	r.middlewares = []httpguard.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerMFA()
	r.registerAPIKeys()
	r.registerRoles()
	r.registerUsers()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatewarden Authentication Service API
//	@version		0.1.0
//	@description	Session-backed authentication service issuing JWT access tokens
//	@description	with rotating refresh tokens, TOTP second factor and API keys.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpguard.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{
		AuthService: r.AuthService,
		CookieMode:  r.CookieMode,
		CookieName:  r.CookieName,
	}
	// Rate limited by IP + username to slow credential stuffing.
	r.Mux.Handle("POST /v1/auth/login",
		httpguard.Chain(login,
			httpguard.RateLimitByIPAndFormField(httpguard.StrictLimit, "username"),
		),
	)

	mfaVerify := &MFAVerifyHandler{
		AuthService: r.AuthService,
		CookieMode:  r.CookieMode,
		CookieName:  r.CookieName,
	}
	// SkipMFA: this is the route that completes MFA, pending tokens must
	// reach it.
	r.Mux.Handle("POST /v1/auth/mfa/verify",
		httpguard.Chain(mfaVerify,
			r.guard.Require(httpguard.RouteOptions{SkipMFA: true}),
			httpguard.RateLimitByIP(httpguard.StrictLimit),
		),
	)

	refresh := &RefreshHandler{
		TokenService: r.TokenService,
		CookieMode:   r.CookieMode,
		CookieName:   r.CookieName,
	}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpguard.Chain(refresh,
			httpguard.RateLimitByIP(httpguard.StrictLimit),
		),
	)

	logout := &LogoutHandler{
		SessionService: r.SessionService,
		CookieMode:     r.CookieMode,
		CookieName:     r.CookieName,
	}
	// SkipMFA so a stuck MFA-pending session can still log itself out.
	r.Mux.Handle("POST /v1/auth/logout",
		httpguard.Chain(http.HandlerFunc(logout.HandleLogout),
			r.guard.Require(httpguard.RouteOptions{SkipMFA: true}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout_all",
		httpguard.Chain(http.HandlerFunc(logout.HandleLogoutAll),
			r.guard.Require(httpguard.RouteOptions{SkipMFA: true}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/verify",
		httpguard.Chain(VerifyHandler(),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.LenientLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	r.Mux.Handle("GET /v1/sessions",
		httpguard.Chain(http.HandlerFunc(h.HandleList),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/sessions/{id}",
		httpguard.Chain(http.HandlerFunc(h.HandleRevoke),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/mfa/enroll",
		httpguard.Chain(http.HandlerFunc(h.HandleEnroll),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/mfa/activate",
		httpguard.Chain(http.HandlerFunc(h.HandleActivate),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/mfa/disable",
		httpguard.Chain(http.HandlerFunc(h.HandleDisable),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.StrictLimit),
		),
	)
}

func (r *Router) registerAPIKeys() {
	h := &APIKeysHandler{APIKeyService: r.APIKeyService}

	r.Mux.Handle("POST /v1/apikeys",
		httpguard.Chain(http.HandlerFunc(h.HandleCreate),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/apikeys",
		httpguard.Chain(http.HandlerFunc(h.HandleList),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/apikeys/{id}",
		httpguard.Chain(http.HandlerFunc(h.HandleRevoke),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RolesService: r.RolesService}

	r.Mux.Handle("GET /v1/roles",
		httpguard.Chain(http.HandlerFunc(h.HandleList),
			r.guard.Require(httpguard.RouteOptions{RequiredPermissions: []string{"roles:read"}}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/roles",
		httpguard.Chain(http.HandlerFunc(h.HandleCreate),
			r.guard.Require(httpguard.RouteOptions{RequiredPermissions: []string{"roles:write"}}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("POST /v1/users",
		httpguard.Chain(http.HandlerFunc(h.HandleCreate),
			r.guard.Require(httpguard.RouteOptions{RequiredPermissions: []string{"users:write"}}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/users/{id}/active",
		httpguard.Chain(http.HandlerFunc(h.HandleSetActive),
			r.guard.Require(httpguard.RouteOptions{RequiredPermissions: []string{"users:write"}}),
			httpguard.RateLimitByUser(httpguard.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/password",
		httpguard.Chain(http.HandlerFunc(h.HandleChangePassword),
			r.guard.Require(httpguard.RouteOptions{}),
			httpguard.RateLimitByUser(httpguard.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpguard.Chain(LivezHandler(r.startTime, r.version),
			httpguard.RateLimitByIP(httpguard.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpguard.Chain(ReadyzHandler(r.startTime, r.version, r.store, r.keys),
			httpguard.RateLimitByIP(httpguard.PublicLimit),
		),
	)
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpguard.Chain(JWKSHandler(r.keys),
			httpguard.RateLimitByIP(httpguard.PublicLimit),
		),
	)
}

func (r *Router) registerBootstrap() {
	h := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpguard.Chain(h,
			httpguard.RateLimitByIP(httpguard.StrictLimit),
		),
	)
}
