package domain

import "errors"

// Failure taxonomy. Services wrap these with detail; transports map them to
// status codes with errors.Is and never expose the detail of unexpected
// errors.
var (
	// ErrInvalidToken: bearer or invite token is malformed, unverifiable or
	// unknown.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnauthorized: no credentials, or no active local user for the
	// identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden: the resolved user fails the route's role policy.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState: the request conflicts with current state (invite not
	// pending, identity already bound elsewhere, bad input).
	ErrInvalidState = errors.New("invalid state")

	// ErrExpired: the invite is pending but past its expiry.
	ErrExpired = errors.New("expired")

	// ErrNotFound: tenant-scoped lookup miss. Cross-tenant ids also land
	// here so existence is not leaked.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable: a collaborator (identity provider, notifier)
	// failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMisconfigured: required configuration is missing.
	ErrMisconfigured = errors.New("misconfigured")
)
