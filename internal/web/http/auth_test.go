package http_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	webhttp "github.com/aussiebroadwan/clinic/internal/web/http"
	"github.com/aussiebroadwan/clinic/internal/web/session"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/jwtx/jwtxtest"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type tokenRequest struct {
	form     url.Values
	user     string
	pass     string
	hasBasic bool
}

// tokenEndpoint is a fake /oauth2/token that records what it was sent.
type tokenEndpoint struct {
	mu    sync.Mutex
	calls int
	last  tokenRequest

	status   int
	response map[string]any
}

func (e *tokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	_ = r.ParseForm()
	e.last.form = r.PostForm
	e.last.user, e.last.pass, e.last.hasBasic = r.BasicAuth()

	w.Header().Set("Content-Type", "application/json")
	if e.status != 0 {
		w.WriteHeader(e.status)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(e.response)
}

func (e *tokenEndpoint) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *tokenEndpoint) Last() tokenRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

type fakeProvisioner struct {
	mu     sync.Mutex
	calls  []string
	block  chan struct{}
	called chan struct{}
}

func newFakeProvisioner() *fakeProvisioner {
	return &fakeProvisioner{called: make(chan struct{}, 4)}
}

func (p *fakeProvisioner) Provision(ctx context.Context, token, inviteToken string) error {
	p.mu.Lock()
	p.calls = append(p.calls, token+"|"+inviteToken)
	p.mu.Unlock()
	p.called <- struct{}{}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
		}
	}
	return nil
}

func (p *fakeProvisioner) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type authFixture struct {
	handler  *webhttp.AuthHandler
	endpoint *tokenEndpoint
	prov     *fakeProvisioner
	metrics  *metrics.Metrics
	server   *httptest.Server
}

func newAuthFixture(t *testing.T, secret string) *authFixture {
	t.Helper()

	endpoint := &tokenEndpoint{response: map[string]any{
		"access_token": "access-token",
		"id_token":     "id-token",
		"token_type":   "Bearer",
		"expires_in":   1800,
	}}
	mux := http.NewServeMux()
	mux.Handle("POST /oauth2/token", endpoint)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	prov := newFakeProvisioner()
	m := metrics.New(prometheus.NewRegistry())

	return &authFixture{
		handler: &webhttp.AuthHandler{
			Provider: webhttp.Provider{
				Domain:       srv.URL,
				ClientID:     "web-client",
				ClientSecret: secret,
				RedirectURI:  "https://app.example.com/api/auth/callback",
			},
			Provisioner:   prov,
			Metrics:       m,
			ProvisionWait: time.Second,
			HTTPClient:    srv.Client(),
		},
		endpoint: endpoint,
		prov:     prov,
		metrics:  m,
		server:   srv,
	}
}

func cookieMap(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func requireTransactionCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	cookies := cookieMap(rec)
	for _, name := range []string{session.CookiePKCE, session.CookieState, session.CookieInvite} {
		c, ok := cookies[name]
		require.True(t, ok, "cookie %s not cleared", name)
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
	}
}

func callbackRequest(query string, cookies map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+query, nil)
	for name, value := range cookies {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("redirects with pkce challenge", func(t *testing.T) {
		t.Parallel()

		fx := newAuthFixture(t, "")
		fx.handler.Provider.Prompt = "login"

		rec := httptest.NewRecorder()
		fx.handler.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))
		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/oauth2/authorize", loc.Path)

		cookies := cookieMap(rec)
		verifier := cookies[session.CookiePKCE].Value
		state := cookies[session.CookieState].Value
		require.Len(t, verifier, 43)
		require.Len(t, state, 22)

		sum := sha256.Sum256([]byte(verifier))
		q := loc.Query()
		require.Equal(t, "code", q.Get("response_type"))
		require.Equal(t, "web-client", q.Get("client_id"))
		require.Equal(t, "https://app.example.com/api/auth/callback", q.Get("redirect_uri"))
		require.Equal(t, "openid email profile", q.Get("scope"))
		require.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), q.Get("code_challenge"))
		require.Equal(t, "S256", q.Get("code_challenge_method"))
		require.Equal(t, state, q.Get("state"))
		require.Equal(t, "login", q.Get("prompt"))

		require.Equal(t, float64(1), testutil.ToFloat64(fx.metrics.Logins.WithLabelValues(metrics.LoginInitiated)))
	})

	t.Run("fresh values per login", func(t *testing.T) {
		t.Parallel()

		fx := newAuthFixture(t, "")
		a, b := httptest.NewRecorder(), httptest.NewRecorder()
		fx.handler.HandleLogin(a, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))
		fx.handler.HandleLogin(b, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))
		require.NotEqual(t, cookieMap(a)[session.CookiePKCE].Value, cookieMap(b)[session.CookiePKCE].Value)
		require.NotEqual(t, cookieMap(a)[session.CookieState].Value, cookieMap(b)[session.CookieState].Value)
	})

	t.Run("missing provider settings", func(t *testing.T) {
		t.Parallel()

		h := &webhttp.AuthHandler{Provider: webhttp.Provider{ClientID: "web-client"}}
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var body clinicsdk.MisconfiguredResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "missing_cognito_env", body.Error)
		require.Equal(t, map[string]bool{"COGNITO_DOMAIN": true, "COGNITO_REDIRECT_URI": true}, body.Missing)
		require.Empty(t, rec.Result().Cookies())
	})
}

func TestCallbackSuccess(t *testing.T) {
	t.Parallel()

	t.Run("confidential client", func(t *testing.T) {
		t.Parallel()

		fx := newAuthFixture(t, "s3cret")
		rec := httptest.NewRecorder()
		fx.handler.HandleCallback(rec, callbackRequest("code=abc&state=st", map[string]string{
			session.CookiePKCE:   "the-verifier",
			session.CookieState:  "st",
			session.CookieInvite: "invite-1",
		}))

		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
		requireTransactionCleared(t, rec)

		auth := cookieMap(rec)[session.CookieAuth]
		require.NotNil(t, auth)
		require.Equal(t, "id-token", auth.Value)
		require.InDelta(t, 1800, auth.MaxAge, 2)
		require.True(t, auth.HttpOnly)

		require.Equal(t, 1, fx.endpoint.Calls())
		last := fx.endpoint.Last()
		require.Equal(t, "authorization_code", last.form.Get("grant_type"))
		require.Equal(t, "abc", last.form.Get("code"))
		require.Equal(t, "the-verifier", last.form.Get("code_verifier"))
		require.Equal(t, "https://app.example.com/api/auth/callback", last.form.Get("redirect_uri"))
		require.True(t, last.hasBasic)
		require.Equal(t, "web-client", last.user)
		require.Equal(t, "s3cret", last.pass)

		require.Equal(t, []string{"id-token|invite-1"}, fx.prov.Calls())
		require.Equal(t, float64(1), testutil.ToFloat64(fx.metrics.Logins.WithLabelValues(metrics.LoginSuccess)))
	})

	t.Run("public client falls back to access token", func(t *testing.T) {
		t.Parallel()

		fx := newAuthFixture(t, "")
		fx.endpoint.response = map[string]any{"access_token": "access-only", "token_type": "Bearer"}

		rec := httptest.NewRecorder()
		fx.handler.HandleCallback(rec, callbackRequest("code=abc&state=st", map[string]string{
			session.CookiePKCE:  "v",
			session.CookieState: "st",
		}))

		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
		auth := cookieMap(rec)[session.CookieAuth]
		require.Equal(t, "access-only", auth.Value)
		require.Equal(t, int(session.DefaultSessionTTL/time.Second), auth.MaxAge)

		last := fx.endpoint.Last()
		require.False(t, last.hasBasic)
		require.Equal(t, "web-client", last.form.Get("client_id"))
		require.Equal(t, []string{"access-only|"}, fx.prov.Calls())
	})

	t.Run("slow provisioning does not hold the redirect", func(t *testing.T) {
		t.Parallel()

		fx := newAuthFixture(t, "")
		fx.prov.block = make(chan struct{})
		t.Cleanup(func() { close(fx.prov.block) })
		fx.handler.ProvisionWait = 20 * time.Millisecond

		start := time.Now()
		rec := httptest.NewRecorder()
		fx.handler.HandleCallback(rec, callbackRequest("code=abc&state=st", map[string]string{
			session.CookiePKCE:  "v",
			session.CookieState: "st",
		}))

		require.Less(t, time.Since(start), 2*time.Second)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
		<-fx.prov.called
	})
}

func TestCallbackRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		query   string
		cookies map[string]string
		result  string
	}{
		{
			name:    "missing code",
			query:   "state=st",
			cookies: map[string]string{session.CookiePKCE: "v", session.CookieState: "st"},
			result:  metrics.LoginMissingCode,
		},
		{
			name:   "missing cookies",
			query:  "code=abc&state=st",
			result: metrics.LoginMissingCookie,
		},
		{
			name:    "missing verifier",
			query:   "code=abc&state=st",
			cookies: map[string]string{session.CookieState: "st"},
			result:  metrics.LoginMissingCookie,
		},
		{
			name:    "state mismatch",
			query:   "code=abc&state=other",
			cookies: map[string]string{session.CookiePKCE: "v", session.CookieState: "st"},
			result:  metrics.LoginStateMismatch,
		},
		{
			name:    "state prefix",
			query:   "code=abc&state=s",
			cookies: map[string]string{session.CookiePKCE: "v", session.CookieState: "st"},
			result:  metrics.LoginStateMismatch,
		},
		{
			name:    "empty state",
			query:   "code=abc",
			cookies: map[string]string{session.CookiePKCE: "v", session.CookieState: "st"},
			result:  metrics.LoginStateMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fx := newAuthFixture(t, "")
			rec := httptest.NewRecorder()
			fx.handler.HandleCallback(rec, callbackRequest(tc.query, tc.cookies))

			require.Equal(t, http.StatusFound, rec.Code)
			require.Equal(t, "/login", rec.Header().Get("Location"))
			requireTransactionCleared(t, rec)
			require.Nil(t, cookieMap(rec)[session.CookieAuth])
			require.Zero(t, fx.endpoint.Calls())
			require.Empty(t, fx.prov.Calls())
			require.Equal(t, float64(1), testutil.ToFloat64(fx.metrics.Logins.WithLabelValues(tc.result)))
		})
	}
}

func TestCallbackReplay(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t, "")
	first := httptest.NewRecorder()
	fx.handler.HandleCallback(first, callbackRequest("code=abc&state=st", map[string]string{
		session.CookiePKCE:  "v",
		session.CookieState: "st",
	}))
	require.Equal(t, "/dashboard", first.Header().Get("Location"))

	// A browser honouring the first response no longer holds the
	// transaction cookies.
	second := httptest.NewRecorder()
	r := callbackRequest("code=abc&state=st", nil)
	for _, c := range first.Result().Cookies() {
		if c.MaxAge >= 0 {
			r.AddCookie(c)
		}
	}
	fx.handler.HandleCallback(second, r)

	require.Equal(t, "/login", second.Header().Get("Location"))
	require.Equal(t, 1, fx.endpoint.Calls())
}

func TestCallbackExchangeFailure(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t, "")
	fx.endpoint.status = http.StatusBadRequest

	rec := httptest.NewRecorder()
	fx.handler.HandleCallback(rec, callbackRequest("code=abc&state=st", map[string]string{
		session.CookiePKCE:  "v",
		session.CookieState: "st",
	}))

	require.Equal(t, "/login", rec.Header().Get("Location"))
	requireTransactionCleared(t, rec)
	require.Nil(t, cookieMap(rec)[session.CookieAuth])
	require.Empty(t, fx.prov.Calls())
	require.Equal(t, float64(1), testutil.ToFloat64(fx.metrics.Logins.WithLabelValues(metrics.LoginExchangeFail)))
}

func TestCallbackExchangeUnreachable(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t, "")
	fx.server.Close()

	rec := httptest.NewRecorder()
	fx.handler.HandleCallback(rec, callbackRequest("code=abc&state=st", map[string]string{
		session.CookiePKCE:  "v",
		session.CookieState: "st",
	}))
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestCallbackMisconfigured(t *testing.T) {
	t.Parallel()

	h := &webhttp.AuthHandler{}
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, callbackRequest("code=abc&state=st", map[string]string{
		session.CookiePKCE:  "v",
		session.CookieState: "st",
	}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	requireTransactionCleared(t, rec)
}

func TestDevTokenHatch(t *testing.T) {
	t.Parallel()

	idp := jwtxtest.New(t)

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		fx := newAuthFixture(t, "")
		rec := httptest.NewRecorder()
		fx.handler.HandleCallback(rec, callbackRequest("token="+idp.IDToken(t, "dev"), nil))
		require.Equal(t, "/login", rec.Header().Get("Location"))
		require.Nil(t, cookieMap(rec)[session.CookieAuth])
	})

	t.Run("verified token accepted", func(t *testing.T) {
		t.Parallel()

		fx := newAuthFixture(t, "")
		fx.handler.AllowDevToken = true
		fx.handler.Verifier = idp.Verifier()

		tok := idp.IDToken(t, "dev")
		rec := httptest.NewRecorder()
		fx.handler.HandleCallback(rec, callbackRequest("token="+tok, map[string]string{session.CookieInvite: "inv"}))

		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
		auth := cookieMap(rec)[session.CookieAuth]
		require.Equal(t, tok, auth.Value)
		require.InDelta(t, 3600, auth.MaxAge, 5)
		require.Equal(t, []string{tok + "|inv"}, fx.prov.Calls())
		require.Zero(t, fx.endpoint.Calls())
		require.Equal(t, float64(1), testutil.ToFloat64(fx.metrics.Logins.WithLabelValues(metrics.LoginDevToken)))
	})

	t.Run("forged token rejected", func(t *testing.T) {
		t.Parallel()

		fx := newAuthFixture(t, "")
		fx.handler.AllowDevToken = true
		fx.handler.Verifier = idp.Verifier()

		other := jwtxtest.New(t)
		rec := httptest.NewRecorder()
		fx.handler.HandleCallback(rec, callbackRequest("token="+other.IDToken(t, "dev"), nil))
		require.Equal(t, "/login", rec.Header().Get("Location"))
		require.Nil(t, cookieMap(rec)[session.CookieAuth])
		require.Empty(t, fx.prov.Calls())
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("provider logout", func(t *testing.T) {
		t.Parallel()

		h := &webhttp.AuthHandler{Provider: webhttp.Provider{Domain: "auth.example.com", ClientID: "web-client"}}
		r := httptest.NewRequest(http.MethodGet, "http://app.example.com/api/auth/logout", nil)
		r.AddCookie(&http.Cookie{Name: session.CookieAuth, Value: "tok"})
		rec := httptest.NewRecorder()
		h.HandleLogout(rec, r)

		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "auth.example.com", loc.Host)
		require.Equal(t, "/logout", loc.Path)
		require.Equal(t, "web-client", loc.Query().Get("client_id"))
		require.Equal(t, "http://app.example.com/login", loc.Query().Get("logout_uri"))

		cookies := cookieMap(rec)
		for _, name := range []string{session.CookieAuth, session.CookiePKCE, session.CookieState, session.CookieInvite} {
			require.Negative(t, cookies[name].MaxAge, name)
		}
	})

	t.Run("explicit logout redirect", func(t *testing.T) {
		t.Parallel()

		h := &webhttp.AuthHandler{Provider: webhttp.Provider{
			Domain:            "auth.example.com",
			ClientID:          "web-client",
			LogoutRedirectURI: "https://app.example.com/bye",
		}}
		rec := httptest.NewRecorder()
		h.HandleLogout(rec, httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil))

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "https://app.example.com/bye", loc.Query().Get("logout_uri"))
	})

	t.Run("local only", func(t *testing.T) {
		t.Parallel()

		h := &webhttp.AuthHandler{}
		rec := httptest.NewRecorder()
		h.HandleLogout(rec, httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil))
		require.Equal(t, "/login", rec.Header().Get("Location"))
		require.Len(t, rec.Result().Cookies(), 4)
	})
}

func TestInviteCarry(t *testing.T) {
	t.Parallel()

	h := &webhttp.AuthHandler{}
	rec := httptest.NewRecorder()
	h.HandleInvite(rec, httptest.NewRequest(http.MethodGet, "/api/auth/invite?token=abc", nil))

	require.Equal(t, "/api/auth/login", rec.Header().Get("Location"))
	c := cookieMap(rec)[session.CookieInvite]
	require.Equal(t, "abc", c.Value)
	require.Equal(t, 600, c.MaxAge)

	rec = httptest.NewRecorder()
	h.HandleInvite(rec, httptest.NewRequest(http.MethodGet, "/api/auth/invite", nil))
	require.Empty(t, rec.Result().Cookies())
}

func TestSessionSummary(t *testing.T) {
	t.Parallel()

	idp := jwtxtest.New(t)
	h := &webhttp.AuthHandler{}

	read := func(t *testing.T, token string) webhttp.SessionSummary {
		t.Helper()
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		if token != "" {
			r.AddCookie(&http.Cookie{Name: session.CookieAuth, Value: token})
		}
		rec := httptest.NewRecorder()
		h.HandleMe(rec, r)
		require.Equal(t, http.StatusOK, rec.Code)

		var out webhttp.SessionSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	require.False(t, read(t, "").Authenticated)
	require.False(t, read(t, "garbage").Authenticated)

	got := read(t, idp.IDToken(t, "sub-1", jwtxtest.WithEmail("a@example.com", true)))
	require.True(t, got.Authenticated)
	require.Equal(t, "sub-1", got.Sub)
	require.Equal(t, "a@example.com", got.Email)
	require.NotZero(t, got.Exp)

	got = read(t, idp.IDToken(t, "sub-1", jwtxtest.WithExpiry(time.Now().Add(-time.Minute))))
	require.False(t, got.Authenticated)
}

func TestAPIProvisioner(t *testing.T) {
	t.Parallel()

	var ensure, accept atomic.Int32
	var bearer, acceptToken atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/ensure-user", func(w http.ResponseWriter, r *http.Request) {
		ensure.Add(1)
		bearer.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(clinicsdk.EnsureUserResponse{})
	})
	mux.HandleFunc("POST /v1/invites/accept-auth", func(w http.ResponseWriter, r *http.Request) {
		accept.Add(1)
		var body clinicsdk.AcceptInviteRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		acceptToken.Store(body.Token)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(clinicsdk.ErrorResponse{Error: clinicsdk.ErrorCodeExpired})
	})
	api := httptest.NewServer(mux)
	t.Cleanup(api.Close)

	m := metrics.New(prometheus.NewRegistry())
	p := &webhttp.APIProvisioner{Client: clinicsdk.NewClient(api.URL), Metrics: m}

	require.NoError(t, p.Provision(context.Background(), "tok", ""))
	require.Equal(t, int32(1), ensure.Load())
	require.Zero(t, accept.Load())
	require.Equal(t, "Bearer tok", bearer.Load())

	err := p.Provision(context.Background(), "tok", "invite-1")
	require.Error(t, err)
	var apiErr *clinicsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, clinicsdk.ErrorCodeExpired, apiErr.Code)
	require.Equal(t, "invite-1", acceptToken.Load())

	require.Equal(t, float64(2), testutil.ToFloat64(m.Provisioning.WithLabelValues(metrics.StepEnsureUser, "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Provisioning.WithLabelValues(metrics.StepAcceptInvite, "error")))
}
