package http

import (
	"net/http"

	"github.com/aussiebroadwan/clinic/internal/api/service"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
)

type UserAdminHandler struct {
	UserService *service.UserService
}

// HandleList godoc
//
//	@Summary		List clinic users
//	@Tags			Admin
//	@Produce		json
//	@Success		200	{object}	clinicsdk.ListUsersResponse
//	@Failure		403	{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admin/users [get]
func (h *UserAdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	users, err := h.UserService.ListUsers(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := clinicsdk.ListUsersResponse{Users: make([]clinicsdk.User, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, toUser(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRemove godoc
//
//	@Summary		Remove a clinic user
//	@Description	Deactivates the user. Their row is kept and they can no longer sign in.
//	@Tags			Admin
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	clinicsdk.OKResponse
//	@Failure		400	{object}	clinicsdk.ErrorResponse	"cannot remove yourself"
//	@Failure		403	{object}	clinicsdk.ErrorResponse
//	@Failure		404	{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admin/users/{id}/remove [post]
func (h *UserAdminHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if _, err := h.UserService.RemoveUser(r.Context(), user, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clinicsdk.OKResponse{OK: true})
}

type ClinicAdminHandler struct {
	ClinicService *service.ClinicService
}

// HandleList godoc
//
//	@Summary		List clinics
//	@Tags			Platform
//	@Produce		json
//	@Success		200	{object}	clinicsdk.ListClinicsResponse
//	@Failure		403	{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admin/clinics [get]
func (h *ClinicAdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clinics, err := h.ClinicService.ListClinics(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := clinicsdk.ListClinicsResponse{Clinics: make([]clinicsdk.Clinic, 0, len(clinics))}
	for _, c := range clinics {
		out.Clinics = append(out.Clinics, toClinic(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate godoc
//
//	@Summary		Create a clinic
//	@Tags			Platform
//	@Accept			json
//	@Produce		json
//	@Param			request	body		clinicsdk.CreateClinicRequest	true	"Clinic"
//	@Success		200		{object}	clinicsdk.Clinic
//	@Failure		400		{object}	clinicsdk.ErrorResponse	"name taken"
//	@Failure		403		{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admin/clinics [post]
func (h *ClinicAdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req clinicsdk.CreateClinicRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	c, err := h.ClinicService.CreateClinic(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toClinic(c))
}

// HandleDelete godoc
//
//	@Summary		Delete a clinic
//	@Description	Only clinics without users or invites can be deleted.
//	@Tags			Platform
//	@Produce		json
//	@Param			id	path		string	true	"Clinic ID"
//	@Success		200	{object}	clinicsdk.OKResponse
//	@Failure		400	{object}	clinicsdk.ErrorResponse	"clinic in use"
//	@Failure		404	{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/admin/clinics/{id} [delete]
func (h *ClinicAdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ClinicService.DeleteClinic(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clinicsdk.OKResponse{OK: true})
}
