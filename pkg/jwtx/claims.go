package jwtx

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token uses issued by the identity provider. ID tokens carry the client id
// in "aud"; access tokens carry it in "client_id" and have no audience.
const (
	TokenUseID     = "id"
	TokenUseAccess = "access"
)

// Claims is the verified claim set of a provider-issued token.
type Claims struct {
	jwt.RegisteredClaims

	TokenUse      string   `json:"token_use,omitempty"`
	Email         string   `json:"email,omitempty"`
	EmailVerified FlexBool `json:"email_verified,omitempty"`
	ClientID      string   `json:"client_id,omitempty"`
	Username      string   `json:"cognito:username,omitempty"`
	Groups        []string `json:"cognito:groups,omitempty"`
	Scope         string   `json:"scope,omitempty"`
}

// FlexBool accepts both JSON booleans and the quoted "true"/"false" strings
// some identity providers emit for email_verified.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = FlexBool(v)
	return nil
}

// ValidateClientID binds an access token to our app client.
func (c *Claims) ValidateClientID(expected string) error {
	if c.ClientID == "" || c.ClientID != expected {
		return ErrClientID
	}
	return nil
}

// Expiry returns exp, and false when the claim is absent.
func (c *Claims) Expiry() (time.Time, bool) {
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}
