package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/clinic/internal/api/guard"
	"github.com/aussiebroadwan/clinic/internal/api/service"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/aussiebroadwan/clinic/api/clinic" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	guard   *guard.Guard
	limits  httpx.RateLimits
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	BootstrapService *service.BootstrapService
	InviteService    *service.InviteService
	UserService      *service.UserService
	ClinicService    *service.ClinicService
}

func NewRouter(
	verifier jwtx.Verifier,
	st store.Store,
	limits httpx.RateLimits,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:     http.NewServeMux(),
		limits:  limits,
		store:   st,
		metrics: m,
		logger:  logger,
	}

	r.guard = &guard.Guard{
		Verifier: verifier,
		Users:    st.Users(),
		Toucher:  st.Users(),
		Metrics:  m,
		OnError:  writeServiceError,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		otelhttp.NewMiddleware("clinic-api"),
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerAuth()
	r.registerInvites()
	r.registerAdmin()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Clinic API
//	@version					0.1.0
//	@description				Identity bootstrap, invite lifecycle and clinic administration.
//	@description				Bearer tokens are identity-provider ID or access tokens, verified against its JWKS.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/clinic
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
//	@description				Identity-provider JWT. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// protect guards h with policy and then limits per subject.
func (r *Router) protect(h http.Handler, policy guard.Policy, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		r.guard.Protect(policy),
		httpx.RateLimitBySubject(limit),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", httpx.Chain(LivezHandler(), httpx.RateLimitByIP(r.limits.Lenient)))
	r.Mux.Handle("GET /readyz", httpx.Chain(ReadyzHandler(r.store), httpx.RateLimitByIP(r.limits.Lenient)))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}

func (r *Router) registerAuth() {
	me := &MeHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/me", r.protect(me, guard.Member, r.limits.Lenient))

	// Both verbs are accepted; the web tier calls POST.
	ensure := r.protect(&EnsureUserHandler{BootstrapService: r.BootstrapService}, guard.Authenticated, r.limits.Moderate)
	r.Mux.Handle("GET /v1/auth/ensure-user", ensure)
	r.Mux.Handle("POST /v1/auth/ensure-user", ensure)
}

func (r *Router) registerInvites() {
	h := &InviteHandler{InviteService: r.InviteService}

	admin := func(fn http.HandlerFunc) http.Handler {
		return r.protect(fn, guard.ClinicAdmin, r.limits.Moderate)
	}
	r.Mux.Handle("GET /v1/invites", admin(h.HandleList))
	r.Mux.Handle("POST /v1/invites", admin(h.HandleCreate))
	r.Mux.Handle("POST /v1/invites/{id}/resend", admin(h.HandleResend))
	r.Mux.Handle("POST /v1/invites/{id}/revoke", admin(h.HandleRevoke))

	// POST /accept - public, strict limit by IP (token guessing)
	r.Mux.Handle("POST /v1/invites/accept",
		httpx.Chain(http.HandlerFunc(h.HandleAccept),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/invites/accept-auth",
		r.protect(http.HandlerFunc(h.HandleAcceptAuth), guard.Authenticated, r.limits.Strict),
	)
}

func (r *Router) registerAdmin() {
	users := &UserAdminHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/admin/users", r.protect(http.HandlerFunc(users.HandleList), guard.ClinicAdmin, r.limits.Moderate))
	r.Mux.Handle("POST /v1/admin/users/{id}/remove", r.protect(http.HandlerFunc(users.HandleRemove), guard.ClinicAdmin, r.limits.Moderate))

	clinics := &ClinicAdminHandler{ClinicService: r.ClinicService}
	r.Mux.Handle("GET /v1/admin/clinics", r.protect(http.HandlerFunc(clinics.HandleList), guard.PlatformAdmin, r.limits.Moderate))
	r.Mux.Handle("POST /v1/admin/clinics", r.protect(http.HandlerFunc(clinics.HandleCreate), guard.PlatformAdmin, r.limits.Moderate))
	r.Mux.Handle("DELETE /v1/admin/clinics/{id}", r.protect(http.HandlerFunc(clinics.HandleDelete), guard.PlatformAdmin, r.limits.Moderate))
}
