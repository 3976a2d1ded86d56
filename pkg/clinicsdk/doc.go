/*
Package clinicsdk is the HTTP client for the clinic API.

# Client vs Session

The package is organized around two types:

  - Client: unauthenticated operations (health, invite accept)
  - Session: operations that carry a bearer token from the identity provider

	client := clinicsdk.NewClient("https://api.example.com")

	// Public invite acceptance
	res, err := client.AcceptInvite(ctx, clinicsdk.AcceptInviteRequest{Token: raw})

	// Provision the caller after login
	session := client.Session(idToken)
	me, err := session.EnsureUser(ctx)

	// Redeem a carried invite as the signed-in identity
	res, err = session.AcceptInviteAuth(ctx, clinicsdk.AcceptInviteRequest{Token: raw})

Sessions do not refresh tokens. The web tier owns the session cookie and
hands the SDK whatever bearer the browser currently holds.

# Errors

Non-2xx responses are returned as *APIError carrying the HTTP status and
the error code from the body:

	var apiErr *clinicsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == clinicsdk.ErrorCodeInvalidState {
		// invite already used, revoked or bound to someone else
	}

# Wire types

The request and response structs in types.go are shared with the API
handlers, so the SDK and server cannot drift.
*/
package clinicsdk
