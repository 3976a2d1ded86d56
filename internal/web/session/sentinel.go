package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

// LogoutPath is where an expired session is sent.
const LogoutPath = "/api/auth/logout"

// Entries ending in a slash match a subtree. Others match the exact path or
// anything below it as a path segment.
var sentinelSkip = []string{"/api/", "/static/", "/favicon.ico", "/login"}

func skipSentinel(path string) bool {
	for _, p := range sentinelSkip {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Sentinel redirects page requests carrying an expired session cookie to the
// logout route. It decodes exp without verifying the signature and makes no
// network calls; the API still verifies every token it receives.
func Sentinel(m Manager, now func() time.Time) httpx.Middleware {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSentinel(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			tok, ok := m.Session(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwtx.DecodeUnverified(tok)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			exp, ok := claims.Expiry()
			if !ok || exp.After(now()) {
				next.ServeHTTP(w, r)
				return
			}

			slogx.FromContext(r.Context()).Info("session expired, logging out", "path", r.URL.Path)
			http.Redirect(w, r, LogoutPath, http.StatusFound)
		})
	}
}
