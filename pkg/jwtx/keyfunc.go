package jwtx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
)

// CognitoIssuer builds the issuer URL for a user pool.
func CognitoIssuer(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

// JWKSURL returns the well-known key set location for an issuer.
func JWKSURL(issuer string) string {
	return strings.TrimSuffix(issuer, "/") + "/.well-known/jwks.json"
}

// NewRemoteKeys fetches the provider's key set and keeps it fresh in the
// background until ctx is cancelled or EndBackground is called. Unknown kids
// trigger a rate-limited refresh so key rotation at the provider is picked
// up without a restart.
func NewRemoteKeys(ctx context.Context, jwksURL string, logger *slog.Logger) (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx: ctx,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks background refresh failed",
				slog.String("jwks_url", jwksURL),
				slog.Any("error", err),
			)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("jwtx: fetch jwks %s: %w", jwksURL, err)
	}
	return jwks, nil
}
