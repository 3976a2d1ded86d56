package http

import (
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// Provider describes the hosted login domain and the app client registered
// with it.
type Provider struct {
	Domain            string
	ClientID          string
	ClientSecret      string
	RedirectURI       string
	LogoutRedirectURI string
	Prompt            string
}

// Missing reports which required settings are unset, keyed by env name.
// Values are never included.
func (p Provider) Missing() map[string]bool {
	missing := map[string]bool{}
	if p.Domain == "" {
		missing["COGNITO_DOMAIN"] = true
	}
	if p.ClientID == "" {
		missing["COGNITO_CLIENT_ID"] = true
	}
	if p.RedirectURI == "" {
		missing["COGNITO_REDIRECT_URI"] = true
	}
	return missing
}

// baseURL accepts a bare host ("auth.example.com") or a full origin.
func (p Provider) baseURL() string {
	d := strings.TrimSuffix(p.Domain, "/")
	if strings.HasPrefix(d, "https://") || strings.HasPrefix(d, "http://") {
		return d
	}
	return "https://" + d
}

// OAuth2 builds the client config. A confidential client authenticates with
// HTTP Basic; a public client sends client_id in the form.
func (p Provider) OAuth2() *oauth2.Config {
	style := oauth2.AuthStyleInParams
	if p.ClientSecret != "" {
		style = oauth2.AuthStyleInHeader
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.baseURL() + "/oauth2/authorize",
			TokenURL:  p.baseURL() + "/oauth2/token",
			AuthStyle: style,
		},
	}
}

// LogoutURL returns the hosted logout endpoint, or "" when the provider is
// not configured. origin is used when no logout redirect is set.
func (p Provider) LogoutURL(origin string) string {
	if p.Domain == "" || p.ClientID == "" {
		return ""
	}
	back := p.LogoutRedirectURI
	if back == "" {
		back = strings.TrimSuffix(origin, "/") + "/login"
	}
	q := url.Values{}
	q.Set("client_id", p.ClientID)
	q.Set("logout_uri", back)
	return p.baseURL() + "/logout?" + q.Encode()
}
