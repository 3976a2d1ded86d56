package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// ErrInvalidToken is the parent of every verification failure, so callers
// can branch on a single condition with errors.Is.
var ErrInvalidToken = errors.New("jwtx: invalid token")

var (
	ErrMalformed           = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrMissingTokenUse     = fmt.Errorf("%w: missing token_use", ErrInvalidToken)
	ErrUnsupportedTokenUse = fmt.Errorf("%w: unsupported token_use", ErrInvalidToken)
	ErrUnknownKID          = fmt.Errorf("%w: unknown kid", ErrInvalidToken)
	ErrInvalidSig          = fmt.Errorf("%w: invalid signature", ErrInvalidToken)
	ErrIssuer              = fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	ErrAudience            = fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	ErrClientID            = fmt.Errorf("%w: client_id mismatch", ErrInvalidToken)
	ErrExpired             = fmt.Errorf("%w: token expired", ErrInvalidToken)
	ErrNotYetValid         = fmt.Errorf("%w: token not yet valid", ErrInvalidToken)
)

// ErrNotConfigured is returned when the verifier lacks keys or a client id.
// It is deliberately not an ErrInvalidToken: the caller did nothing wrong.
var ErrNotConfigured = errors.New("jwtx: verifier not configured")

// CognitoVerifier verifies provider-issued RS256 tokens. The unsigned
// token_use claim only picks which checks apply; the decision itself rests
// on the verified claims.
type CognitoVerifier struct {
	Issuer   string
	ClientID string
	Keyfunc  jwt.Keyfunc

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration
}

// NewCognitoVerifier returns a verifier for the given issuer and app client.
func NewCognitoVerifier(issuer, clientID string, keyfunc jwt.Keyfunc) *CognitoVerifier {
	return &CognitoVerifier{Issuer: issuer, ClientID: clientID, Keyfunc: keyfunc}
}

// Verify checks structure, signature, issuer, expiry and the client binding
// for the token's declared use.
func (v *CognitoVerifier) Verify(token string) (Claims, error) {
	if v == nil || v.Keyfunc == nil || v.ClientID == "" {
		return Claims{}, ErrNotConfigured
	}

	// 1. Peek at token_use without trusting it.
	peek, err := DecodeUnverified(token)
	if err != nil {
		return Claims{}, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.Issuer),
		jwt.WithLeeway(v.Leeway),
	}

	// 2. Select the verifier profile.
	switch peek.TokenUse {
	case TokenUseID:
		opts = append(opts, jwt.WithAudience(v.ClientID))
	case TokenUseAccess:
	case "":
		return Claims{}, ErrMissingTokenUse
	default:
		return Claims{}, fmt.Errorf("%w: %q", ErrUnsupportedTokenUse, peek.TokenUse)
	}

	// 3. Verify the whole token.
	var claims Claims
	if _, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, v.Keyfunc); err != nil {
		return Claims{}, mapParseError(err)
	}

	if claims.TokenUse != peek.TokenUse {
		return Claims{}, fmt.Errorf("%w: %q", ErrUnsupportedTokenUse, claims.TokenUse)
	}
	if claims.TokenUse == TokenUseAccess {
		if err := claims.ValidateClientID(v.ClientID); err != nil {
			return Claims{}, err
		}
	}

	return claims, nil
}

func mapParseError(err error) error {
	var sentinel error
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		sentinel = ErrMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		sentinel = ErrUnknownKID
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		sentinel = ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		sentinel = ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		sentinel = ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		sentinel = ErrIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		sentinel = ErrAudience
	default:
		sentinel = ErrInvalidToken
	}
	return fmt.Errorf("%w (%v)", sentinel, err)
}
