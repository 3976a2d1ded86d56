package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	webhttp "github.com/aussiebroadwan/clinic/internal/web/http"
	"github.com/aussiebroadwan/clinic/internal/web/session"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/jwtx/jwtxtest"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type upstreamRequest struct {
	path   string
	auth   string
	cookie string
}

func newWebServer(t *testing.T, apiURL string) *httptest.Server {
	t.Helper()

	cookies := session.Manager{}
	logger := slogx.Discard()
	m := metrics.New(prometheus.NewRegistry())

	backend, err := webhttp.NewBackendProxy(apiURL, cookies, nil)
	require.NoError(t, err)

	router := webhttp.NewRouter(cookies, httpx.DefaultRateLimits(), m, logger, time.Now)
	router.Auth = &webhttp.AuthHandler{Cookies: cookies, Metrics: m}
	router.Backend = backend
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieAuth, Value: token})
	}
	resp, err := noRedirect().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestBackendProxy(t *testing.T) {
	t.Parallel()

	var seen atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(upstreamRequest{path: r.URL.Path, auth: r.Header.Get("Authorization"), cookie: r.Header.Get("Cookie")})
		httpx.WriteJSON(w, http.StatusOK, clinicsdk.OKResponse{OK: true})
	}))
	t.Cleanup(api.Close)

	web := newWebServer(t, api.URL)

	t.Run("forwards session as bearer", func(t *testing.T) {
		resp := get(t, web.URL+"/api/backend/v1/me", "session-token")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := seen.Load().(upstreamRequest)
		require.Equal(t, "/v1/me", got.path)
		require.Equal(t, "Bearer session-token", got.auth)
		require.Empty(t, got.cookie)
	})

	t.Run("no session", func(t *testing.T) {
		resp := get(t, web.URL+"/api/backend/v1/me", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body clinicsdk.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, clinicsdk.ErrorCodeUnauthorized, body.Error)
	})
}

func TestBackendProxyUpstreamDown(t *testing.T) {
	t.Parallel()

	api := httptest.NewServer(http.NotFoundHandler())
	apiURL := api.URL
	api.Close()

	web := newWebServer(t, apiURL)
	resp := get(t, web.URL+"/api/backend/v1/me", "session-token")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body clinicsdk.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, clinicsdk.ErrorCodeUpstreamUnavailable, body.Error)
}

func TestNewBackendProxyRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := webhttp.NewBackendProxy("not a url", session.Manager{}, nil)
	require.Error(t, err)
}

func TestWebRoutes(t *testing.T) {
	t.Parallel()

	idp := jwtxtest.New(t)
	web := newWebServer(t, "http://127.0.0.1:1")

	live := idp.IDToken(t, "sub-1", jwtxtest.WithEmail("a@example.com", true))
	expired := idp.IDToken(t, "sub-1", jwtxtest.WithExpiry(time.Now().Add(-time.Minute)))

	t.Run("livez", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, http.StatusOK, get(t, web.URL+"/livez", "").StatusCode)
	})

	t.Run("login page", func(t *testing.T) {
		t.Parallel()
		resp := get(t, web.URL+"/login", expired)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	})

	t.Run("dashboard requires session", func(t *testing.T) {
		t.Parallel()
		resp := get(t, web.URL+"/dashboard", "")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("dashboard with session", func(t *testing.T) {
		t.Parallel()
		resp := get(t, web.URL+"/dashboard", live)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "a@example.com")
	})

	t.Run("expired session is logged out", func(t *testing.T) {
		t.Parallel()
		resp := get(t, web.URL+"/dashboard", expired)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, session.LogoutPath, resp.Header.Get("Location"))
	})

	t.Run("logout with expired session is not looped", func(t *testing.T) {
		t.Parallel()
		resp := get(t, web.URL+session.LogoutPath, expired)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("login misconfigured", func(t *testing.T) {
		t.Parallel()
		resp := get(t, web.URL+"/api/auth/login", "")
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}
