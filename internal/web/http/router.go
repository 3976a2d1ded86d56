package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/clinic/internal/web/session"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Router serves the browser-facing routes of the web tier.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	limits  httpx.RateLimits
	metrics *metrics.Metrics
	logger  *slog.Logger
	cookies session.Manager

	Auth    *AuthHandler
	Backend http.Handler
}

func NewRouter(
	cookies session.Manager,
	limits httpx.RateLimits,
	m *metrics.Metrics,
	logger *slog.Logger,
	now func() time.Time,
) *Router {
	r := &Router{
		Mux:     http.NewServeMux(),
		limits:  limits,
		metrics: m,
		logger:  logger,
		cookies: cookies,
	}

	r.middlewares = []httpx.Middleware{
		otelhttp.NewMiddleware("clinic-web"),
		slogx.HTTPMiddleware(r.logger),
		session.Sentinel(cookies, now),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerAuth()
	r.registerPages()

	if r.Backend != nil {
		r.Mux.Handle("/api/backend/", r.Backend)
	}
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", httpx.Chain(LivezHandler(), httpx.RateLimitByIP(r.limits.Lenient)))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}

func (r *Router) registerAuth() {
	byIP := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn, httpx.RateLimitByIP(limit))
	}

	r.Mux.Handle("GET /api/auth/login", byIP(r.Auth.HandleLogin, r.limits.Moderate))
	r.Mux.Handle("GET /api/auth/callback", byIP(r.Auth.HandleCallback, r.limits.Moderate))
	r.Mux.Handle("GET /api/auth/logout", byIP(r.Auth.HandleLogout, r.limits.Lenient))
	r.Mux.Handle("GET /api/auth/invite", byIP(r.Auth.HandleInvite, r.limits.Strict))
	r.Mux.Handle("GET /api/auth/me", byIP(r.Auth.HandleMe, r.limits.Lenient))
}

func (r *Router) registerPages() {
	r.Mux.Handle("GET /login", LoginPage())
	r.Mux.Handle("GET /dashboard", DashboardPage(r.cookies))
	r.Mux.Handle("GET /{$}", http.RedirectHandler("/dashboard", http.StatusFound))
}
