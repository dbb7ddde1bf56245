// Package http wires the auth core's HTTP surface: routing, authentication
// middleware, per-endpoint-class rate limiting and the JSON handlers.
package http

import (
	"log/slog"
	"net/http"

	"github.com/swiftmeds/authcore/internal/authcore/service"
	"github.com/swiftmeds/authcore/pkg/httpx"
	"github.com/swiftmeds/authcore/pkg/slogx"
)

// RateLimits carries one ceiling per endpoint class. Authentication
// endpoints are throttled far harder than the general surface because they
// are the ones worth brute-forcing.
type RateLimits struct {
	Login    httpx.RateLimitConfig
	Register httpx.RateLimitConfig
	Reset    httpx.RateLimitConfig
	General  httpx.RateLimitConfig
}

// Router holds shared dependencies for the HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger *slog.Logger

	AuthService  *service.AuthService
	TokenService *service.TokenService
	UserService  *service.UserService

	Limits     RateLimits
	LimitStore httpx.RateLimitStore
}

func NewRouter(logger *slog.Logger, limits RateLimits, limitStore httpx.RateLimitStore) *Router {
	r := &Router{
		Mux:        http.NewServeMux(),
		logger:     logger,
		Limits:     limits,
		LimitStore: limitStore,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SecurityHeaders(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware
// chain: every response carries the security headers and every request gets
// a request-scoped logger.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// limit builds the throttling middleware for one endpoint class.
func (r *Router) limit(class string, cfg httpx.RateLimitConfig, key httpx.KeyExtractor) httpx.Middleware {
	return httpx.RateLimit(class, cfg, r.LimitStore, key)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService}

	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.Register),
			r.limit("register", r.Limits.Register, httpx.IPKeyExtractor),
		))

	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.Login),
			r.limit("login", r.Limits.Login, httpx.IPKeyExtractor),
		))

	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.Refresh),
			r.limit("refresh", r.Limits.Login, httpx.IPKeyExtractor),
		))

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.Logout),
			r.limit("logout", r.Limits.General, httpx.IPKeyExtractor),
		))

	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.ForgotPassword),
			r.limit("reset", r.Limits.Reset, httpx.IPKeyExtractor),
		))

	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.ResetPassword),
			r.limit("reset", r.Limits.Reset, httpx.IPKeyExtractor),
		))
}

func (r *Router) registerUsers() {
	me := &ProfileHandler{Users: r.UserService}
	admin := &AdminHandler{Users: r.UserService}

	authn := r.authn()

	// Chain applies the last middleware first. Authentication runs before
	// the general-class limiter so the limiter keys on the authenticated
	// username rather than one shared client IP.
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(me.Get),
			r.limit("general", r.Limits.General, httpx.UserKeyExtractor),
			authn,
		))

	r.Mux.Handle("PUT /auth/me",
		httpx.Chain(http.HandlerFunc(me.Update),
			r.limit("general", r.Limits.General, httpx.UserKeyExtractor),
			authn,
		))

	r.Mux.Handle("GET /users",
		httpx.Chain(http.HandlerFunc(admin.List),
			r.limit("general", r.Limits.General, httpx.UserKeyExtractor),
			r.requireAdmin(),
			authn,
		))

	r.Mux.Handle("PUT /users/{id}/role",
		httpx.Chain(http.HandlerFunc(admin.UpdateRole),
			r.limit("general", r.Limits.General, httpx.UserKeyExtractor),
			r.requireAdmin(),
			authn,
		))

	r.Mux.Handle("DELETE /users/{id}",
		httpx.Chain(http.HandlerFunc(admin.Delete),
			r.limit("general", r.Limits.General, httpx.UserKeyExtractor),
			r.requireAdmin(),
			authn,
		))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /health",
		httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}),
			r.limit("general", r.Limits.General, httpx.IPKeyExtractor),
		))
}
