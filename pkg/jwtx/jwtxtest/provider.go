// Package jwtxtest is a fake identity provider for tests: it signs
// provider-shaped tokens and exposes the matching key set.
package jwtxtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	DefaultIssuer   = "https://cognito-idp.ap-southeast-2.amazonaws.com/ap-southeast-2_test"
	DefaultClientID = "test-app-client"
)

// Provider holds one RSA signing key. Tokens it mints verify against
// Keyfunc and against the JWKS document it serves.
type Provider struct {
	Issuer   string
	ClientID string
	KID      string

	key  *rsa.PrivateKey
	keys *keyfunc.JWKS
}

// New generates a 2048-bit key and a given-key keyfunc for it.
func New(t testing.TB) *Provider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kid := "test-kid-1"
	return &Provider{
		Issuer:   DefaultIssuer,
		ClientID: DefaultClientID,
		KID:      kid,
		key:      key,
		keys: keyfunc.NewGiven(map[string]keyfunc.GivenKey{
			kid: keyfunc.NewGivenRSA(&key.PublicKey, keyfunc.GivenKeyOptions{
				Algorithm: jwt.SigningMethodRS256.Alg(),
			}),
		}),
	}
}

// Keyfunc resolves the provider's signing key by kid.
func (p *Provider) Keyfunc() jwt.Keyfunc {
	return p.keys.Keyfunc
}

// Verifier returns a verifier bound to this provider.
func (p *Provider) Verifier() *jwtx.CognitoVerifier {
	return jwtx.NewCognitoVerifier(p.Issuer, p.ClientID, p.Keyfunc())
}

// JWKS returns the public key set.
func (p *Provider) JWKS() jwtx.JWKS {
	return jwtx.JWKS{Keys: []jwtx.JWK{
		jwtx.NewRSAJWK(p.KID, "sig", jwt.SigningMethodRS256.Alg(), &p.key.PublicKey),
	}}
}

// JWKSHandler serves the key set the way the provider does.
func (p *Provider) JWKSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.JWKS())
	})
}

// Option mutates claims before signing.
type Option func(*jwtx.Claims)

func WithEmail(email string, verified bool) Option {
	return func(c *jwtx.Claims) {
		c.Email = email
		c.EmailVerified = jwtx.FlexBool(verified)
	}
}

func WithoutEmail() Option {
	return func(c *jwtx.Claims) {
		c.Email = ""
		c.EmailVerified = false
	}
}

func WithExpiry(exp time.Time) Option {
	return func(c *jwtx.Claims) { c.ExpiresAt = jwt.NewNumericDate(exp) }
}

func WithIssuer(iss string) Option {
	return func(c *jwtx.Claims) { c.Issuer = iss }
}

func WithAudience(aud ...string) Option {
	return func(c *jwtx.Claims) { c.Audience = aud }
}

func WithClientID(clientID string) Option {
	return func(c *jwtx.Claims) { c.ClientID = clientID }
}

func WithTokenUse(use string) Option {
	return func(c *jwtx.Claims) { c.TokenUse = use }
}

// IDToken mints an id token for sub. Emails default to "<sub>@example.com",
// verified.
func (p *Provider) IDToken(t testing.TB, sub string, opts ...Option) string {
	t.Helper()

	now := time.Now()
	c := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   sub,
			Audience:  jwt.ClaimStrings{p.ClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		TokenUse:      jwtx.TokenUseID,
		Email:         sub + "@example.com",
		EmailVerified: true,
		Username:      sub,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return p.Sign(t, c)
}

// AccessToken mints an access token for sub. Access tokens carry no email.
func (p *Provider) AccessToken(t testing.TB, sub string, opts ...Option) string {
	t.Helper()

	now := time.Now()
	c := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		TokenUse: jwtx.TokenUseAccess,
		ClientID: p.ClientID,
		Scope:    "openid email profile",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return p.Sign(t, c)
}

// Sign signs arbitrary claims with the provider key and kid header.
func (p *Provider) Sign(t testing.TB, c jwtx.Claims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = p.KID
	s, err := tok.SignedString(p.key)
	require.NoError(t, err)
	return s
}
