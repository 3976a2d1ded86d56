package clinicsdk

import (
	"context"
	"net/http"
)

// AcceptInvite redeems a raw invite token without a session.
func (c *Client) AcceptInvite(ctx context.Context, req AcceptInviteRequest) (*AcceptInviteResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/invites/accept", "", req)
	return call[AcceptInviteResponse](resp, err)
}
