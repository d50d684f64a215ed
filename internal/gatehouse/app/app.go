package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/gatehouselabs/gatehouse/internal/gatehouse/http"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/service"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store"
	"github.com/gatehouselabs/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/gatehouselabs/gatehouse/pkg/cryptox"
	"github.com/gatehouselabs/gatehouse/pkg/jwtx"
	"github.com/gatehouselabs/gatehouse/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	sessionKeySize = 32
)

// Application encapsulates the login service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	signer *jwtx.SessionSigner

	// Services
	originLimiter       *service.OriginLimiter
	failureTracker      *service.FailureTracker
	challengeManager    *service.ChallengeManager
	mfaService          *service.MFAService
	sessionService      *service.SessionService
	loginService        *service.LoginService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	key, err := cryptox.LoadOrGenerateKeyFile(app.cfg.SessionKeyFile, sessionKeySize)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to load session signing key: %w", err)
	}
	app.signer = jwtx.NewSessionSigner(key, app.cfg.Issuer)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Seed the initial admin account on an empty database
	if err := app.bootstrapService.EnsureSeedUser(slogx.WithContext(context.Background(), app.logger)); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("gatehouse starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatehouse stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.originLimiter = service.NewOriginLimiter()
	app.failureTracker = &service.FailureTracker{Store: app.db}
	app.challengeManager = &service.ChallengeManager{Store: app.db}

	app.mfaService = &service.MFAService{
		Store:        app.db,
		Issuer:       app.cfg.Issuer,
		FailureLimit: app.cfg.MFAFailureLimit,
	}

	app.sessionService = &service.SessionService{
		Store:    app.db,
		Signer:   app.signer,
		Lifetime: app.cfg.SessionLifetime,
	}

	app.loginService = &service.LoginService{
		Store:      app.db,
		Limiter:    app.originLimiter,
		Failures:   app.failureTracker,
		Challenges: app.challengeManager,
		MFA:        app.mfaService,
		Sessions:   app.sessionService,
	}

	app.bootstrapService = &service.BootstrapService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.originLimiter,
		app.logger,
		app.cfg.HousekeepingInterval,
		nil,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.sessionService, app.logger)
	router.LoginService = app.loginService
	router.SecureCookies = app.cfg.SecureCookies
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
