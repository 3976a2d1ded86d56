package clinicsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListInvites returns the caller's clinic invites, newest first.
// Requires: OWNER or ADMIN
func (s *Session) ListInvites(ctx context.Context) (*ListInvitesResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/invites", nil)
	return call[ListInvitesResponse](resp, err)
}

// CreateInvite mints an invite. The raw token is only ever returned here
// and from ResendInvite.
// Requires: OWNER or ADMIN
func (s *Session) CreateInvite(ctx context.Context, req CreateInviteRequest) (*CreateInviteResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/invites", req)
	return call[CreateInviteResponse](resp, err)
}

// ResendInvite rotates the token of a pending invite.
// Requires: OWNER or ADMIN
func (s *Session) ResendInvite(ctx context.Context, id string, req ResendInviteRequest) (*ResendInviteResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/invites/"+url.PathEscape(id)+"/resend", req)
	return call[ResendInviteResponse](resp, err)
}

// RevokeInvite cancels a pending invite.
// Requires: OWNER or ADMIN
func (s *Session) RevokeInvite(ctx context.Context, id string) (*OKResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/invites/"+url.PathEscape(id)+"/revoke", nil)
	return call[OKResponse](resp, err)
}
