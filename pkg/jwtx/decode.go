package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeUnverified parses the payload segment without checking the
// signature. The result must never drive an authorization decision; it is
// for picking a verifier, edge expiry hints and diagnostics.
func DecodeUnverified(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w (%v)", ErrMalformed, err)
	}
	return claims, nil
}
