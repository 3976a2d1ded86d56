package clinic_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apiapp "github.com/aussiebroadwan/clinic/internal/api/app"
	webapp "github.com/aussiebroadwan/clinic/internal/web/app"
	"github.com/aussiebroadwan/clinic/internal/web/session"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/cryptox"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/jwtx/jwtxtest"
	"github.com/stretchr/testify/require"
)

/*
 * End-to-end tests run the api and web applications in-process against a
 * fake hosted login domain. A browser is an http.Client with a cookie jar.
 */

const (
	superAdminEmail = "root@example.com"
	defaultClinicID = "clinic-default"
)

type pendingLogin struct {
	sub       string
	email     string
	challenge string
	redirect  string
}

// identityProvider serves /oauth2/authorize, /oauth2/token and the key set.
// Authorize signs in whoever was registered with SignInAs.
type identityProvider struct {
	*jwtxtest.Provider
	server *httptest.Server

	mu     sync.Mutex
	t      *testing.T
	next   pendingLogin
	codes  map[string]pendingLogin
	tokens int
}

func newIdentityProvider(t *testing.T) *identityProvider {
	t.Helper()

	idp := &identityProvider{Provider: jwtxtest.New(t), t: t, codes: map[string]pendingLogin{}}

	mux := http.NewServeMux()
	mux.Handle("GET /.well-known/jwks.json", idp.JWKSHandler())
	mux.HandleFunc("GET /oauth2/authorize", idp.authorize)
	mux.HandleFunc("POST /oauth2/token", idp.token)
	mux.HandleFunc("GET /logout", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Query().Get("logout_uri"), http.StatusFound)
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (p *identityProvider) SignInAs(sub, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = pendingLogin{sub: sub, email: email}
}

func (p *identityProvider) TokenCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokens
}

func (p *identityProvider) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		http.Error(w, "pkce required", http.StatusBadRequest)
		return
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	p.mu.Lock()
	login := p.next
	login.challenge = q.Get("code_challenge")
	login.redirect = q.Get("redirect_uri")
	p.codes[code] = login
	p.mu.Unlock()

	back := url.Values{}
	back.Set("code", code)
	back.Set("state", q.Get("state"))
	http.Redirect(w, r, login.redirect+"?"+back.Encode(), http.StatusFound)
}

func (p *identityProvider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p.mu.Lock()
	p.tokens++
	login, ok := p.codes[r.PostForm.Get("code")]
	delete(p.codes, r.PostForm.Get("code"))
	p.mu.Unlock()

	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "unknown code")
		return
	}
	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != login.challenge {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "pkce verification failed")
		return
	}
	if r.PostForm.Get("redirect_uri") != login.redirect {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri mismatch")
		return
	}

	idToken := p.IDToken(p.t, login.sub, jwtxtest.WithEmail(login.email, true))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": p.AccessToken(p.t, login.sub),
		"id_token":     idToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

type stack struct {
	idp *identityProvider
	api *httptest.Server
	web *httptest.Server
}

// setupStack starts the api and web applications wired to a fake provider.
func setupStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	idp := newIdentityProvider(t)

	// The web URL is needed by the api config before the web app exists.
	web := httptest.NewUnstartedServer(nil)
	webURL := "http://" + web.Listener.Addr().String()

	apiCfg, err := apiapp.LoadConfig()
	require.NoError(t, err)
	apiCfg.LogLevel = "error"
	apiCfg.LogFormat = "text"
	apiCfg.DatabaseFile = filepath.Join(t.TempDir(), "clinic.db")
	apiCfg.CognitoIssuer = idp.Issuer
	apiCfg.CognitoJWKSURL = idp.server.URL + "/.well-known/jwks.json"
	apiCfg.CognitoClientID = idp.ClientID
	apiCfg.DefaultClinicID = defaultClinicID
	apiCfg.PlatformAdminEmails = []string{superAdminEmail}
	apiCfg.WebAppBaseURL = webURL
	apiCfg.InviteRetention = 0

	apiApp, err := apiapp.New(ctx, apiCfg)
	require.NoError(t, err)
	api := httptest.NewServer(apiApp.Handler())
	t.Cleanup(func() {
		api.Close()
		_ = apiApp.Shutdown()
	})

	webCfg, err := webapp.LoadConfig()
	require.NoError(t, err)
	webCfg.LogLevel = "error"
	webCfg.LogFormat = "text"
	webCfg.CognitoDomain = idp.server.URL
	webCfg.CognitoClientID = idp.ClientID
	webCfg.CognitoRedirectURI = webURL + "/api/auth/callback"
	webCfg.APIBaseURL = api.URL
	webCfg.ProvisionWait = 5 * time.Second

	webApp, err := webapp.New(ctx, webCfg)
	require.NoError(t, err)
	web.Config.Handler = webApp.Handler()
	web.Start()
	t.Cleanup(func() {
		web.Close()
		_ = webApp.Shutdown()
	})

	return &stack{idp: idp, api: api, web: web}
}

type browser struct {
	t      *testing.T
	client *http.Client
	base   *url.URL
}

func (s *stack) newBrowser(t *testing.T) *browser {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse(s.web.URL)
	require.NoError(t, err)
	return &browser{t: t, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}, base: base}
}

// Get follows redirects and returns the final response.
func (b *browser) Get(path string) *http.Response {
	b.t.Helper()
	resp, err := b.client.Get(b.base.String() + path)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// SessionToken returns the auth cookie the web tier set.
func (b *browser) SessionToken() string {
	for _, c := range b.client.Jar.Cookies(b.base) {
		if c.Name == session.CookieAuth {
			return c.Value
		}
	}
	return ""
}

// Login runs the full browser round trip as sub/email and returns the final
// response.
func (s *stack) Login(b *browser, sub, email string) *http.Response {
	b.t.Helper()
	s.idp.SignInAs(sub, email)
	return b.Get("/api/auth/login")
}

// apiSession talks to the api directly with the browser's session token.
func (s *stack) apiSession(b *browser) *clinicsdk.Session {
	b.t.Helper()
	tok := b.SessionToken()
	require.NotEmpty(b.t, tok, "browser has no session")
	return clinicsdk.NewClient(s.api.URL).Session(tok)
}

// BackendMe reads /v1/me through the web proxy, as the UI does.
func (b *browser) BackendMe() (int, clinicsdk.MeResponse) {
	b.t.Helper()
	resp := b.Get("/api/backend/v1/me")
	var out clinicsdk.MeResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}
