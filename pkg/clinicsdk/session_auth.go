package clinicsdk

import (
	"context"
	"net/http"
)

// EnsureUser provisions (or refreshes) the local user for the session's
// identity. It is idempotent.
func (s *Session) EnsureUser(ctx context.Context) (*EnsureUserResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/auth/ensure-user", nil)
	return call[EnsureUserResponse](resp, err)
}

// AcceptInviteAuth redeems an invite for the session's identity. The token's
// verified email must match the invite.
func (s *Session) AcceptInviteAuth(ctx context.Context, req AcceptInviteRequest) (*AcceptInviteResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/invites/accept-auth", req)
	return call[AcceptInviteResponse](resp, err)
}

// Me returns the resolved user and clinic.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/me", nil)
	return call[MeResponse](resp, err)
}
