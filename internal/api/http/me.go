package http

import (
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/guard"
	"github.com/aussiebroadwan/clinic/internal/api/service"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
)

// principal returns the guard's principal. Handlers are only reachable
// behind Protect, so a miss is a wiring bug.
func principal(r *http.Request) (guard.Principal, error) {
	p, ok := guard.FromContext(r.Context())
	if !ok {
		return guard.Principal{}, fmt.Errorf("%w: route is not guarded", domain.ErrMisconfigured)
	}
	return p, nil
}

// actor returns the resolved local user.
func actor(r *http.Request) (domain.User, error) {
	p, err := principal(r)
	if err != nil {
		return domain.User{}, err
	}
	if p.User == nil {
		return domain.User{}, fmt.Errorf("%w: route does not resolve a user", domain.ErrMisconfigured)
	}
	return *p.User, nil
}

type MeHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Current user
//	@Description	Returns the resolved local user and their clinic.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	clinicsdk.MeResponse
//	@Failure		401	{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/me [get]
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	m, err := h.UserService.Me(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toMembership(m))
}

type EnsureUserHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP godoc
//
//	@Summary		Bootstrap the caller
//	@Description	Finds or creates the local user for the token's identity. Idempotent.
//	@Description	A first login creates the user in the default clinic.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	clinicsdk.EnsureUserResponse
//	@Failure		400	{object}	clinicsdk.ErrorResponse	"invalid_state"
//	@Failure		401	{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/auth/ensure-user [post]
func (h *EnsureUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	m, err := h.BootstrapService.EnsureUser(r.Context(), p.Identity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toMembership(m))
}
