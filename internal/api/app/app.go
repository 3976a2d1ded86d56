package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/aussiebroadwan/clinic/internal/api/domain"
	httpapi "github.com/aussiebroadwan/clinic/internal/api/http"
	"github.com/aussiebroadwan/clinic/internal/api/service"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/internal/api/store/drivers/sqldb"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/notify"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the API service with all its dependencies.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Core dependencies
	db       store.Store
	keys     *keyfunc.JWKS
	verifier jwtx.Verifier
	notifier notify.Notifier

	// Services
	bootstrapService    *service.BootstrapService
	inviteService       *service.InviteService
	userService         *service.UserService
	clinicService       *service.ClinicService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "clinic-api",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.New(reg)

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initVerifier(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initNotifier(ctx); err != nil {
		app.closeDependencies()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeDependencies()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the API router with its global middleware.
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

// Serve runs the server and background workers until ctx is done, then shuts
// down gracefully.
func (app *Application) Serve(ctx context.Context) error {
	if err := app.housekeepingService.Start(); err != nil {
		return fmt.Errorf("start housekeeping: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("clinic api starting", "port", app.cfg.Port, "version", BuildVersion)
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
	app.logger.Info("shutting down clinic api...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.keys != nil {
		app.keys.EndBackground()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("clinic api stopped")
	return nil
}

func (app *Application) closeDependencies() {
	if app.keys != nil {
		app.keys.EndBackground()
	}
	_ = app.db.Close()
}

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := sqldb.Open(ctx, app.cfg.DatabaseDriver, app.cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", db.Dialect())
	return nil
}

// initVerifier loads the provider's key set. Without provider settings the
// API still starts; guarded routes then answer 500 misconfigured.
func (app *Application) initVerifier(ctx context.Context) error {
	issuer, jwksURL := app.cfg.Issuer(), app.cfg.JWKSURL()
	if issuer == "" || jwksURL == "" || app.cfg.CognitoClientID == "" {
		app.logger.Warn("identity provider not configured, bearer tokens will be rejected",
			"has_issuer", issuer != "",
			"has_client_id", app.cfg.CognitoClientID != "",
		)
		return nil
	}

	// The background refresh lives until Shutdown calls EndBackground.
	keys, err := jwtx.NewRemoteKeys(context.WithoutCancel(ctx), jwksURL, app.logger)
	if err != nil {
		return fmt.Errorf("failed to load identity provider keys: %w", err)
	}
	app.keys = keys
	app.verifier = jwtx.NewCognitoVerifier(issuer, app.cfg.CognitoClientID, keys.Keyfunc)

	app.logger.Info("identity provider keys loaded", "issuer", issuer, "jwks_url", jwksURL)
	return nil
}

func (app *Application) initNotifier(ctx context.Context) error {
	switch strings.ToLower(strings.TrimSpace(app.cfg.Notifier)) {
	case "", "none":
		app.notifier = notify.Noop{}
	case "ses":
		n, err := notify.NewSESNotifier(ctx, notify.SESConfig{
			Region:          app.cfg.AWSRegion,
			From:            app.cfg.SESFromEmail,
			AccessKeyID:     app.cfg.AWSAccessKeyID,
			SecretAccessKey: app.cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize ses notifier: %w", err)
		}
		app.notifier = n
	case "smtp":
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize smtp notifier: %w", err)
		}
		app.notifier = n
	default:
		return fmt.Errorf("%w: unknown notifier %q", domain.ErrMisconfigured, app.cfg.Notifier)
	}

	app.logger.Info("invite notifier configured", "kind", app.notifier.Kind())
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	role, err := domain.ParseRole(app.cfg.BootstrapDefaultRole)
	if err != nil {
		return fmt.Errorf("BOOTSTRAP_DEFAULT_ROLE: %w", err)
	}

	admins := make([]string, 0, len(app.cfg.PlatformAdminEmails))
	for _, e := range app.cfg.PlatformAdminEmails {
		if e = domain.NormalizeEmail(e); e != "" {
			admins = append(admins, e)
		}
	}

	app.bootstrapService = &service.BootstrapService{
		Store:               app.db,
		DefaultClinicID:     app.cfg.DefaultClinicID,
		DefaultClinicName:   app.cfg.DefaultClinicName,
		DefaultRole:         role,
		PlatformAdminEmails: admins,
	}
	app.inviteService = &service.InviteService{
		Store:          app.db,
		Notifier:       app.notifier,
		Metrics:        app.metrics,
		WebAppBaseURL:  app.cfg.WebAppBaseURL,
		DefaultTTLDays: app.cfg.InviteDefaultTTLDays,
	}
	app.userService = &service.UserService{Store: app.db}
	app.clinicService = &service.ClinicService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingSchedule,
		app.cfg.InviteRetention,
	)
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		app.db,
		app.cfg.RateLimits,
		app.metrics,
		app.logger,
	)

	// Wire services to router
	router.BootstrapService = app.bootstrapService
	router.InviteService = app.inviteService
	router.UserService = app.userService
	router.ClinicService = app.clinicService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
