package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/clinic/internal/web/session"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/cryptox"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
	"golang.org/x/oauth2"
)

const (
	DefaultExchangeTimeout  = 10 * time.Second
	DefaultProvisionWait    = 3 * time.Second
	DefaultProvisionTimeout = 10 * time.Second

	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// AuthHandler runs the authorization code flow with PKCE against the hosted
// login domain.
type AuthHandler struct {
	Provider    Provider
	Cookies     session.Manager
	Provisioner Provisioner
	Metrics     *metrics.Metrics

	// Verifier checks dev hatch tokens when the key set is configured.
	Verifier      jwtx.Verifier
	AllowDevToken bool

	ExchangeTimeout  time.Duration
	ProvisionWait    time.Duration
	ProvisionTimeout time.Duration

	// HTTPClient is used for the token exchange.
	HTTPClient *http.Client
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (h *AuthHandler) writeMisconfigured(w http.ResponseWriter, r *http.Request, missing map[string]bool) {
	h.Metrics.Login(metrics.LoginMisconfigured)
	slogx.FromContext(r.Context()).Error("login provider not configured", "missing", missing)
	httpx.WriteJSON(w, http.StatusInternalServerError, clinicsdk.MisconfiguredResponse{
		Error:   "missing_cognito_env",
		Missing: missing,
	})
}

// HandleLogin starts a login round trip.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if missing := h.Provider.Missing(); len(missing) > 0 {
		h.writeMisconfigured(w, r, missing)
		return
	}

	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, clinicsdk.ErrorCodeServerError, "Internal server error")
		return
	}
	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, clinicsdk.ErrorCodeServerError, "Internal server error")
		return
	}

	h.Cookies.BeginTransaction(w, r, session.Transaction{Verifier: verifier, State: state})

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if h.Provider.Prompt != "" {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", h.Provider.Prompt))
	}

	h.Metrics.Login(metrics.LoginInitiated)
	httpx.NoCache(w)
	http.Redirect(w, r, h.Provider.OAuth2().AuthCodeURL(state, opts...), http.StatusFound)
}

// HandleCallback completes the round trip. The transaction cookies are
// cleared on every path out of this handler.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())
	q := r.URL.Query()
	tx := h.Cookies.TakeTransaction(w, r)
	httpx.NoCache(w)

	if tok := q.Get("token"); tok != "" && h.AllowDevToken {
		h.devLogin(w, r, tok, tx.InviteToken)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.Metrics.Login(metrics.LoginMissingCode)
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}
	if missing := h.Provider.Missing(); len(missing) > 0 {
		h.writeMisconfigured(w, r, missing)
		return
	}
	if tx.Verifier == "" || tx.State == "" {
		h.Metrics.Login(metrics.LoginMissingCookie)
		log.Info("callback without transaction cookies")
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}
	if !cryptox.EqualTokens(tx.State, q.Get("state")) {
		h.Metrics.Login(metrics.LoginStateMismatch)
		log.Warn("callback state mismatch")
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	token, ttl, err := h.exchange(r.Context(), code, tx.Verifier)
	if err != nil {
		h.Metrics.Login(metrics.LoginExchangeFail)
		log.Warn("token exchange failed", "error", err)
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	h.Cookies.SetSession(w, r, token, ttl)
	h.provision(r.Context(), token, tx.InviteToken)

	h.Metrics.Login(metrics.LoginSuccess)
	http.Redirect(w, r, dashboardPath, http.StatusFound)
}

var errNoSessionToken = errors.New("token response carried no usable token")

// exchange redeems the code and returns the session token with its lifetime.
// The id token is preferred because it carries the email claims.
func (h *AuthHandler) exchange(ctx context.Context, code, verifier string) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(h.ExchangeTimeout, DefaultExchangeTimeout))
	defer cancel()
	if h.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, h.HTTPClient)
	}

	tok, err := h.Provider.OAuth2().Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", 0, err
	}

	sessionToken := tok.AccessToken
	if id, ok := tok.Extra("id_token").(string); ok && id != "" {
		sessionToken = id
	}
	if sessionToken == "" {
		return "", 0, errNoSessionToken
	}

	ttl := session.DefaultSessionTTL
	switch {
	case tok.ExpiresIn > 0:
		ttl = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero() && time.Until(tok.Expiry) > 0:
		ttl = time.Until(tok.Expiry)
	}
	return sessionToken, ttl, nil
}

func (h *AuthHandler) devLogin(w http.ResponseWriter, r *http.Request, token, inviteToken string) {
	log := slogx.FromContext(r.Context())

	if h.Verifier != nil {
		if _, err := h.Verifier.Verify(token); err != nil {
			log.Warn("dev token rejected", "error", err)
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
	}

	ttl := session.DefaultSessionTTL
	if claims, err := jwtx.DecodeUnverified(token); err == nil {
		if exp, ok := claims.Expiry(); ok && time.Until(exp) > 0 {
			ttl = time.Until(exp)
		}
	}

	log.Warn("insecure dev token accepted")
	h.Cookies.SetSession(w, r, token, ttl)
	h.provision(r.Context(), token, inviteToken)

	h.Metrics.Login(metrics.LoginDevToken)
	http.Redirect(w, r, dashboardPath, http.StatusFound)
}

// provision runs the provisioner on a detached context and waits at most
// ProvisionWait for it. Failures are logged by the provisioner and never
// block the login.
func (h *AuthHandler) provision(ctx context.Context, token, inviteToken string) {
	if h.Provisioner == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orDefault(h.ProvisionTimeout, DefaultProvisionTimeout))
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		if err := h.Provisioner.Provision(pctx, token, inviteToken); err != nil {
			slogx.FromContext(pctx).Warn("provisioning incomplete", "error", err)
		}
	}()

	wait := time.NewTimer(orDefault(h.ProvisionWait, DefaultProvisionWait))
	defer wait.Stop()
	select {
	case <-done:
	case <-wait.C:
		slogx.FromContext(ctx).Info("provisioning still running, continuing login")
	}
}

// HandleLogout drops the session and signs out at the provider when it is
// configured.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.ClearAll(w, r)
	httpx.NoCache(w)

	if u := h.Provider.LogoutURL(requestOrigin(r)); u != "" {
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusFound)
}

// HandleInvite remembers ?token= and starts a login.
func (h *AuthHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	if tok := r.URL.Query().Get("token"); tok != "" {
		h.Cookies.SetInvite(w, r, tok)
	}
	http.Redirect(w, r, "/api/auth/login", http.StatusFound)
}

// SessionSummary is an unverified view of the session cookie for the UI.
type SessionSummary struct {
	Authenticated bool   `json:"authenticated"`
	Sub           string `json:"sub,omitempty"`
	Email         string `json:"email,omitempty"`
	Exp           int64  `json:"exp,omitempty"`
}

// HandleMe decodes the session cookie without verifying it. It must not be
// used for authorization.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.Cookies.Session(r)
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, SessionSummary{})
		return
	}
	claims, err := jwtx.DecodeUnverified(tok)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, SessionSummary{})
		return
	}

	out := SessionSummary{
		Authenticated: true,
		Sub:           claims.Subject,
		Email:         claims.Email,
	}
	if exp, ok := claims.Expiry(); ok {
		out.Exp = exp.Unix()
		if !exp.After(time.Now()) {
			out.Authenticated = false
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}
