// Package session owns the browser-side state of the web tier. Every value
// lives in a cookie, so any web replica can finish a flow another one began.
package session

import (
	"net/http"
	"time"
)

// Cookie names.
const (
	CookieAuth   = "auth"
	CookiePKCE   = "pkce"
	CookieState  = "oauth_state"
	CookieInvite = "invite_token"
)

const (
	// TransactionTTL bounds the pkce, oauth_state and invite_token cookies.
	TransactionTTL = 10 * time.Minute
	// DefaultSessionTTL applies when the provider omits expires_in.
	DefaultSessionTTL = time.Hour
)

// Manager writes and reads the session cookies.
type Manager struct {
	// ForceSecure sets the Secure attribute regardless of the request scheme.
	ForceSecure bool
}

// Transaction is the state a login round trip carries between the login and
// callback requests.
type Transaction struct {
	Verifier    string
	State       string
	InviteToken string
}

func (m Manager) secure(r *http.Request) bool {
	if m.ForceSecure || r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}

func (m Manager) set(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure(r),
	}
	if ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
		c.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, c)
}

func (m Manager) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func read(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetSession stores the session token. A non-positive ttl falls back to
// DefaultSessionTTL.
func (m Manager) SetSession(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m.set(w, r, CookieAuth, token, ttl)
}

// Session returns the session token, if any.
func (m Manager) Session(r *http.Request) (string, bool) {
	tok := read(r, CookieAuth)
	return tok, tok != ""
}

// BeginTransaction stores the verifier and state for the callback.
func (m Manager) BeginTransaction(w http.ResponseWriter, r *http.Request, tx Transaction) {
	m.set(w, r, CookiePKCE, tx.Verifier, TransactionTTL)
	m.set(w, r, CookieState, tx.State, TransactionTTL)
}

// SetInvite remembers an invite token across the login round trip.
func (m Manager) SetInvite(w http.ResponseWriter, r *http.Request, token string) {
	m.set(w, r, CookieInvite, token, TransactionTTL)
}

// TakeTransaction reads the transaction cookies and clears them in the same
// response. A transaction can be taken at most once.
func (m Manager) TakeTransaction(w http.ResponseWriter, r *http.Request) Transaction {
	tx := Transaction{
		Verifier:    read(r, CookiePKCE),
		State:       read(r, CookieState),
		InviteToken: read(r, CookieInvite),
	}
	m.ClearTransaction(w, r)
	return tx
}

func (m Manager) ClearTransaction(w http.ResponseWriter, r *http.Request) {
	m.clear(w, r, CookiePKCE)
	m.clear(w, r, CookieState)
	m.clear(w, r, CookieInvite)
}

// ClearAll removes the session and any pending transaction.
func (m Manager) ClearAll(w http.ResponseWriter, r *http.Request) {
	m.clear(w, r, CookieAuth)
	m.ClearTransaction(w, r)
}
