package http

import (
	"html/template"
	"net/http"

	"github.com/aussiebroadwan/clinic/internal/web/session"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

var pages = template.Must(template.New("login").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<main>
<h1>Clinic</h1>
<p><a href="/api/auth/login">Sign in</a></p>
</main>
</body>
</html>
`))

func init() {
	template.Must(pages.New("dashboard").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Dashboard</title></head>
<body>
<main>
<h1>Dashboard</h1>
<p>Signed in{{if .Email}} as {{.Email}}{{end}}.</p>
<p><a href="/api/auth/logout">Sign out</a></p>
</main>
</body>
</html>
`))
}

func render(w http.ResponseWriter, r *http.Request, name string, data any) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		slogx.FromContext(r.Context()).Error("render page failed", "page", name, "error", err)
	}
}

// LoginPage serves the sign in page.
func LoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, "login", nil)
	}
}

// DashboardPage is the landing page after sign in. Without a session it
// sends the browser to /login.
func DashboardPage(cookies session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := cookies.Session(r)
		if !ok {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		var data struct{ Email string }
		if claims, err := jwtx.DecodeUnverified(tok); err == nil {
			data.Email = claims.Email
		}
		render(w, r, "dashboard", data)
	}
}

// LivezHandler reports process liveness.
func LivezHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, clinicsdk.HealthResponse{Status: "ok"})
	}
}
