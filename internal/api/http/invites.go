package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/service"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
)

type InviteHandler struct {
	InviteService *service.InviteService
}

func (h *InviteHandler) now() time.Time {
	if h.InviteService.Now != nil {
		return h.InviteService.Now().UTC()
	}
	return time.Now().UTC()
}

// HandleList godoc
//
//	@Summary		List invites
//	@Description	Invites of the caller's clinic, newest first, with the computed state.
//	@Tags			Invitations
//	@Produce		json
//	@Success		200	{object}	clinicsdk.ListInvitesResponse
//	@Failure		401	{object}	clinicsdk.ErrorResponse
//	@Failure		403	{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invites [get]
func (h *InviteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	invites, err := h.InviteService.ListInvites(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := h.now()
	out := clinicsdk.ListInvitesResponse{Invites: make([]clinicsdk.Invite, 0, len(invites))}
	for _, inv := range invites {
		out.Invites = append(out.Invites, toInvite(inv, now))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate godoc
//
//	@Summary		Create an invite
//	@Description	Mints a single-use invite into the caller's clinic and emails it.
//	@Description	The raw token is only returned here and from resend.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		clinicsdk.CreateInviteRequest	true	"Invite request"
//	@Success		200		{object}	clinicsdk.CreateInviteResponse
//	@Failure		400		{object}	clinicsdk.ErrorResponse	"invalid_request, invalid_state"
//	@Failure		403		{object}	clinicsdk.ErrorResponse	"role above the caller's"
//	@Failure		502		{object}	clinicsdk.ErrorResponse	"invite stored but the email failed"
//	@Security		BearerAuth
//	@Router			/v1/invites [post]
func (h *InviteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req clinicsdk.CreateInviteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	issued, err := h.InviteService.CreateInvite(r.Context(), user, service.CreateInviteInput{
		Email:         req.Email,
		Role:          req.Role,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, clinicsdk.CreateInviteResponse{
		InviteID:  issued.Invite.ID,
		Token:     issued.Token,
		InviteURL: issued.InviteURL,
	})
}

// HandleResend godoc
//
//	@Summary		Resend an invite
//	@Description	Rotates the token of a pending invite, resets its expiry and emails it again.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Invite ID"
//	@Param			request	body		clinicsdk.ResendInviteRequest	false	"Resend options"
//	@Success		200		{object}	clinicsdk.ResendInviteResponse
//	@Failure		400		{object}	clinicsdk.ErrorResponse	"invite is not pending"
//	@Failure		404		{object}	clinicsdk.ErrorResponse
//	@Failure		502		{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invites/{id}/resend [post]
func (h *InviteHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req clinicsdk.ResendInviteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	issued, err := h.InviteService.ResendInvite(r.Context(), user, r.PathValue("id"), req.ExpiresInDays)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, clinicsdk.ResendInviteResponse{
		Token:     issued.Token,
		InviteURL: issued.InviteURL,
	})
}

// HandleRevoke godoc
//
//	@Summary		Revoke an invite
//	@Tags			Invitations
//	@Produce		json
//	@Param			id	path		string	true	"Invite ID"
//	@Success		200	{object}	clinicsdk.OKResponse
//	@Failure		400	{object}	clinicsdk.ErrorResponse	"invite is not pending"
//	@Failure		404	{object}	clinicsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invites/{id}/revoke [post]
func (h *InviteHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.InviteService.RevokeInvite(r.Context(), user, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clinicsdk.OKResponse{OK: true})
}

// HandleAccept godoc
//
//	@Summary		Accept an invite
//	@Description	Redeems an invite token without a login. The user is created or
//	@Description	moved into the invite's clinic and links their identity on first login.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		clinicsdk.AcceptInviteRequest	true	"Invite token"
//	@Success		200		{object}	clinicsdk.AcceptInviteResponse
//	@Failure		400		{object}	clinicsdk.ErrorResponse	"invalid_state, expired"
//	@Failure		401		{object}	clinicsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/invites/accept [post]
func (h *InviteHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	var req clinicsdk.AcceptInviteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	accepted, err := h.InviteService.AcceptInvite(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAccepted(accepted))
}

// HandleAcceptAuth godoc
//
//	@Summary		Accept an invite as the caller
//	@Description	Redeems an invite for the bearer's identity. The token's email must
//	@Description	match the invite and must not belong to a different identity.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		clinicsdk.AcceptInviteRequest	true	"Invite token"
//	@Success		200		{object}	clinicsdk.AcceptInviteResponse
//	@Failure		400		{object}	clinicsdk.ErrorResponse	"invalid_state, expired"
//	@Failure		401		{object}	clinicsdk.ErrorResponse	"invalid_token, unauthorized"
//	@Security		BearerAuth
//	@Router			/v1/invites/accept-auth [post]
func (h *InviteHandler) HandleAcceptAuth(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req clinicsdk.AcceptInviteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	accepted, err := h.InviteService.AcceptInviteAuth(r.Context(), p.Identity, req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAccepted(accepted))
}
