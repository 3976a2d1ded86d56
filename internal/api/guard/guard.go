// Package guard is the API's identity resolver: an ordered chain of stages
// that turns a bearer token into a verified identity, binds it to a local
// user and applies the route's role policy.
//
// Stages run in order and the first failure stops the chain, so later
// stages and the handler never see a rejected request.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

// Principal accumulates what the stages learn about the caller.
type Principal struct {
	Claims   jwtx.Claims
	Identity domain.Identity

	// User is nil until ResolveUser has run.
	User *domain.User
}

// Stage inspects the request and principal and either enriches the
// principal or rejects the request.
type Stage func(r *http.Request, p Principal) (Principal, error)

// Chain is an ordered list of stages.
type Chain []Stage

// Run executes the stages in order and stops at the first error.
func (c Chain) Run(r *http.Request) (Principal, error) {
	var (
		p   Principal
		err error
	)
	for _, stage := range c {
		if p, err = stage(r, p); err != nil {
			return Principal{}, err
		}
	}
	return p, nil
}

// StageError records which stage rejected the request.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

func deny(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Stage names, used as the guard_denials_total label.
const (
	StageAuthenticate         = "authenticate"
	StageResolveUser          = "resolve_user"
	StageRequireRoles         = "require_roles"
	StageRequirePlatformRoles = "require_platform_roles"
)

// Policy is attached to a route at registration. The zero value only
// authenticates the bearer token.
type Policy struct {
	// Resolve binds the identity to an active local user. Implied by any
	// role requirement.
	Resolve bool

	// Roles the user's tenant role must be one of. Empty allows any
	// resolved user.
	Roles []domain.Role

	// PlatformRoles the user's platform role must be one of. Empty allows
	// any resolved user.
	PlatformRoles []domain.PlatformRole
}

var (
	// Authenticated verifies the bearer token only. The caller may have no
	// local user yet.
	Authenticated = Policy{}

	// Member requires an active local user in any role.
	Member = Policy{Resolve: true}

	// ClinicAdmin requires an OWNER or ADMIN of the caller's clinic.
	ClinicAdmin = Policy{Resolve: true, Roles: []domain.Role{domain.RoleOwner, domain.RoleAdmin}}

	// PlatformAdmin requires the SUPER_ADMIN platform role.
	PlatformAdmin = Policy{Resolve: true, PlatformRoles: []domain.PlatformRole{domain.PlatformRoleSuperAdmin}}
)

func (p Policy) resolves() bool {
	return p.Resolve || len(p.Roles) > 0 || len(p.PlatformRoles) > 0
}

// UserLookup finds a local user by external subject.
type UserLookup interface {
	GetUserBySub(ctx context.Context, sub string) (domain.User, error)
}

// Toucher records user activity.
type Toucher interface {
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

// ErrorWriter renders a rejected request.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Guard builds protected handlers from policies.
type Guard struct {
	Verifier jwtx.Verifier
	Users    UserLookup
	Toucher  Toucher
	Metrics  *metrics.Metrics
	OnError  ErrorWriter
	Now      func() time.Time
}

// Stages expands a policy into its ordered stages.
func (g *Guard) Stages(p Policy) Chain {
	chain := Chain{Authenticate(g.Verifier)}
	if !p.resolves() {
		return chain
	}
	return append(chain,
		ResolveUser(g.Users, g.Toucher, g.Now),
		RequireRoles(p.Roles...),
		RequirePlatformRoles(p.PlatformRoles...),
	)
}

// Protect returns middleware that runs the policy's chain before next. On
// success the principal and subject are placed on the request context.
func (g *Guard) Protect(p Policy) httpx.Middleware {
	chain := g.Stages(p)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := chain.Run(r)
			if err != nil {
				stage := "unknown"
				var se *StageError
				if errors.As(err, &se) {
					stage = se.Stage
				}
				g.Metrics.GuardDenied(stage)

				slogx.FromContext(r.Context()).Info("request denied",
					slog.String("stage", stage),
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)
				g.writeError(w, r, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = httpx.WithSubject(ctx, principal.Identity.Sub)
			ctx = slogx.With(ctx, slog.String("sub", principal.Identity.Sub))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guard) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if g.OnError != nil {
		g.OnError(w, r, err)
		return
	}

	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	case errors.Is(err, domain.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}

type ctxKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal set by Protect.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
