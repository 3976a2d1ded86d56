package http

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/clinic/internal/web/session"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

const backendPrefix = "/api/backend"

// NewBackendProxy forwards /api/backend/* to the API with the session cookie
// presented as a bearer token. Browser cookies are not forwarded.
func NewBackendProxy(apiBaseURL string, cookies session.Manager, transport http.RoundTripper) (http.Handler, error) {
	target, err := url.Parse(strings.TrimSuffix(apiBaseURL, "/"))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid API base url %q", apiBaseURL)
	}

	proxy := &httputil.ReverseProxy{
		Transport: transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
			if tok, ok := cookies.Session(pr.In); ok {
				pr.Out.Header.Set("Authorization", "Bearer "+tok)
			}
			if id := pr.In.Header.Get(slogx.RequestIDHeader); id != "" {
				pr.Out.Header.Set(slogx.RequestIDHeader, id)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slogx.FromContext(r.Context()).Error("backend unavailable", "error", err)
			httpx.WriteError(w, http.StatusBadGateway, clinicsdk.ErrorCodeUpstreamUnavailable, "Backend unavailable")
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := cookies.Session(r); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, clinicsdk.ErrorCodeUnauthorized, "Not signed in")
			return
		}
		http.StripPrefix(backendPrefix, proxy).ServeHTTP(w, r)
	}), nil
}
