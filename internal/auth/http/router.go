package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/metrics"
	"github.com/aussiebroadwan/searchlab/internal/auth/service"
	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"

	_ "github.com/aussiebroadwan/searchlab/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	limits       httpx.RateLimitProfiles
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	store             store.Store
	DeviceAuthService *service.DeviceAuthService
	UserService       *service.UserService
	BootstrapService  *service.BootstrapService
	Auditor           *service.Auditor
}

func NewRouter(
	codec *jwtx.Codec,
	limits httpx.RateLimitProfiles,
	buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		limits:       limits,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      m,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		clientIPMiddleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerDevice()
	r.registerOAuth2()
	r.registerUsers()
	r.registerAdmin()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Searchlab Authentication Service API
//	@version		0.1.0
//	@description	OAuth2 device authorization grant (RFC 8628) for command line agents of the searchlab documentation search.
//	@description
//	@description				Access and refresh tokens are HS256 signed JWTs. Refresh tokens are single use and rotate on every refresh.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/searchlab
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
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
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h under pattern with per-route metrics outermost.
func (r *Router) handle(pattern, route string, h http.Handler, m ...httpx.Middleware) {
	chain := append([]httpx.Middleware{r.metrics.Middleware(route)}, m...)
	r.Mux.Handle(pattern, httpx.Chain(h, chain...))
}

func (r *Router) registerDevice() {
	h := &DeviceHandler{DeviceAuthService: r.DeviceAuthService}

	// POST /device/code - moderate rate limit (creates state)
	r.handle("POST /v1/device/code", "device_code",
		http.HandlerFunc(h.HandleCode),
		httpx.RateLimitByIP(r.limits.Moderate),
	)

	// POST /device/authorize - strict rate limit (password checks)
	// Note: Rate limited by IP + username to prevent brute force
	r.handle("POST /v1/device/authorize", "device_authorize",
		http.HandlerFunc(h.HandleAuthorize),
		httpx.RateLimitByIPAndJSONField(r.limits.Strict, "username"),
	)

	// GET /device/status - lenient, the verification page may refresh it
	r.handle("GET /v1/device/status", "device_status",
		http.HandlerFunc(h.HandleStatus),
		httpx.RateLimitByIP(r.limits.Lenient),
	)

	// POST /device/token - lenient rate limit by device code (polling)
	r.handle("POST /v1/device/token", "device_token",
		http.HandlerFunc(h.HandleToken),
		httpx.RateLimitByIPAndFormField(r.limits.Lenient, "device_code"),
	)
}

func (r *Router) registerOAuth2() {
	// POST /token - moderate rate limit by IP (covers all grant types)
	tokenHandler := &TokenHandler{DeviceAuthService: r.DeviceAuthService}
	r.handle("POST /v1/oauth2/token", "oauth2_token",
		tokenHandler,
		httpx.RateLimitByIP(r.limits.Moderate),
	)

	// POST /revoke - moderate rate limit
	revokeHandler := &RevokeHandler{DeviceAuthService: r.DeviceAuthService}
	r.handle("POST /v1/oauth2/revoke", "oauth2_revoke",
		revokeHandler,
		httpx.RateLimitByIP(r.limits.Moderate),
	)
}

func (r *Router) registerUsers() {
	h := &UserInfoHandler{UserService: r.UserService}

	// Authenticated endpoint - lenient rate limit by user
	r.handle("GET /v1/userinfo", "userinfo", h,
		httpx.AuthnMiddleware(r.codec),     // verify JWT (iss/exp/typ)
		httpx.RequireAnyScope("docs:read"), // enforce scopes
		httpx.RateLimitByUser(r.limits.Lenient),
	)
}

func (r *Router) registerAdmin() {
	users := &AdminUsersHandler{UserService: r.UserService}
	audit := &AdminAuditHandler{Auditor: r.Auditor}

	write := []httpx.Middleware{
		httpx.AuthnMiddleware(r.codec),
		httpx.RequireAnyScope("admin:write"),
		httpx.RateLimitByUser(r.limits.Moderate),
	}
	read := []httpx.Middleware{
		httpx.AuthnMiddleware(r.codec),
		httpx.RequireAnyScope("admin:read"),
		httpx.RateLimitByUser(r.limits.Moderate),
	}

	r.handle("POST /v1/admin/users", "admin_users_create",
		http.HandlerFunc(users.HandleCreate), write...)
	r.handle("POST /v1/admin/users/{id}/deactivate", "admin_users_deactivate",
		http.HandlerFunc(users.HandleDeactivate), write...)
	r.handle("GET /v1/admin/audit/events", "admin_audit_events",
		http.HandlerFunc(audit.HandleList), read...)
	r.handle("GET /v1/admin/audit/stats", "admin_audit_stats",
		http.HandlerFunc(audit.HandleStats), read...)
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - very strict rate limit by IP (one-time setup endpoint)
	bootstrapHandler := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.handle("POST /v1/bootstrap", "bootstrap",
		bootstrapHandler,
		httpx.RateLimitByIP(r.limits.Strict),
	)
}

func (r *Router) registerSystem() {
	h := &HealthHandler{Started: r.startTime, Version: r.buildVersion, Store: r.store, Codec: r.codec}

	// Health check endpoints - public rate limits (monitoring systems may poll frequently)
	r.handle("GET /livez", "livez", http.HandlerFunc(h.HandleLivez), httpx.RateLimitByIP(r.limits.Public))
	r.handle("GET /readyz", "readyz", http.HandlerFunc(h.HandleReadyz), httpx.RateLimitByIP(r.limits.Public))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}

// clientIPMiddleware makes the caller address available to audit records.
func clientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := service.WithClientIP(r.Context(), httpx.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
