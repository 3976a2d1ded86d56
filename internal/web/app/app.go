package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	webhttp "github.com/aussiebroadwan/clinic/internal/web/http"
	"github.com/aussiebroadwan/clinic/internal/web/session"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the web tier with all its dependencies.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	keys     *keyfunc.JWKS
	verifier jwtx.Verifier
	api      *clinicsdk.Client

	server *http.Server
	router *webhttp.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "clinic-web",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.New(reg)

	if err := app.initVerifier(ctx); err != nil {
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		app.closeDependencies()
		return nil, err
	}

	return app, nil
}

// Handler returns the web router with its global middleware.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until SIGINT/SIGTERM or a server
// error.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Serve(ctx)
}

// Serve runs the server until ctx is done, then shuts down gracefully.
func (app *Application) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("clinic web starting", "port", app.cfg.Port, "version", BuildVersion, "api", app.cfg.APIBaseURL)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown requested")
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down clinic web...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.closeDependencies()

	app.logger.Info("clinic web stopped")
	return nil
}

func (app *Application) closeDependencies() {
	if app.keys != nil {
		app.keys.EndBackground()
	}
}

// initVerifier loads the pool key set so dev hatch tokens can be checked.
// It is optional; without it the hatch trusts the token as given.
func (app *Application) initVerifier(ctx context.Context) error {
	issuer, jwksURL := app.cfg.Issuer(), app.cfg.JWKSURL()
	if issuer == "" || jwksURL == "" || app.cfg.CognitoClientID == "" {
		if app.cfg.AllowInsecureDevToken {
			app.logger.Warn("dev token hatch enabled without a key set, tokens are not verified")
		}
		return nil
	}

	keys, err := jwtx.NewRemoteKeys(context.WithoutCancel(ctx), jwksURL, app.logger)
	if err != nil {
		return fmt.Errorf("failed to load identity provider keys: %w", err)
	}
	app.keys = keys
	app.verifier = jwtx.NewCognitoVerifier(issuer, app.cfg.CognitoClientID, keys.Keyfunc)
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() error {
	cookies := session.Manager{ForceSecure: app.cfg.CookieSecure}

	app.api = clinicsdk.NewClient(app.cfg.APIBaseURL)
	app.api.HTTPClient.Transport = otelhttp.NewTransport(http.DefaultTransport)

	backend, err := webhttp.NewBackendProxy(app.cfg.APIBaseURL, cookies, otelhttp.NewTransport(http.DefaultTransport))
	if err != nil {
		return fmt.Errorf("API_BASE_URL: %w", err)
	}

	auth := &webhttp.AuthHandler{
		Provider: webhttp.Provider{
			Domain:            app.cfg.CognitoDomain,
			ClientID:          app.cfg.CognitoClientID,
			ClientSecret:      app.cfg.CognitoClientSecret,
			RedirectURI:       app.cfg.CognitoRedirectURI,
			LogoutRedirectURI: app.cfg.CognitoLogoutRedirectURI,
			Prompt:            app.cfg.CognitoPrompt,
		},
		Cookies:          cookies,
		Provisioner:      &webhttp.APIProvisioner{Client: app.api, Metrics: app.metrics},
		Metrics:          app.metrics,
		Verifier:         app.verifier,
		AllowDevToken:    app.cfg.AllowInsecureDevToken,
		ExchangeTimeout:  app.cfg.OAuthExchangeTimeout,
		ProvisionWait:    app.cfg.ProvisionWait,
		ProvisionTimeout: app.cfg.ProvisionTimeout,
		HTTPClient:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	if missing := auth.Provider.Missing(); len(missing) > 0 {
		app.logger.Warn("login provider not configured, login will fail", "missing", missing)
	}

	router := webhttp.NewRouter(cookies, app.cfg.RateLimits, app.metrics, app.logger, time.Now)
	router.Auth = auth
	router.Backend = backend
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
