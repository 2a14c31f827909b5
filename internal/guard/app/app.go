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

	httpapi "github.com/gatewarden/gatewarden/internal/guard/http"
	"github.com/gatewarden/gatewarden/internal/guard/service"
	"github.com/gatewarden/gatewarden/internal/guard/store"
	"github.com/gatewarden/gatewarden/internal/guard/store/drivers/sqlite"
	"github.com/gatewarden/gatewarden/pkg/cryptox"
	"github.com/gatewarden/gatewarden/pkg/httpguard"
	"github.com/gatewarden/gatewarden/pkg/jwtx"
	"github.com/gatewarden/gatewarden/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the guard service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	guard      *httpguard.Guard

	authService         *service.AuthService
	tokenService        *service.TokenService
	sessionService      *service.SessionService
	mfaService          *service.MFAService
	rolesService        *service.RolesService
	apiKeyService       *service.APIKeyService
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatewarden",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := InitSigningKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.keyManager = keyManager

	app.initServices()
	app.initGuard()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gatewarden starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatewarden...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatewarden stopped")
	return nil
}

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

func (app *Application) initServices() {
	minter := &service.TokenMinter{
		KeyManager: app.keyManager,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.authService = &service.AuthService{Store: app.db, Minter: minter}
	app.tokenService = &service.TokenService{Store: app.db, Minter: minter}
	app.sessionService = &service.SessionService{Store: app.db}
	app.mfaService = &service.MFAService{Store: app.db, Issuer: app.cfg.Issuer}
	app.rolesService = &service.RolesService{Store: app.db}
	app.apiKeyService = &service.APIKeyService{Store: app.db}
	app.userService = &service.UserService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initGuard() {
	extract := httpguard.ExtractHeader
	if app.cfg.CookieMode {
		extract = httpguard.ExtractHeaderThenCookie
	}

	app.guard = &httpguard.Guard{
		Verifier:   app.keyManager.Verifier,
		Sessions:   &service.GuardSessions{Store: app.db},
		Users:      &service.GuardUsers{Store: app.db},
		APIKeys:    app.apiKeyService,
		Resolver:   &httpguard.RoleResolver{Source: app.rolesService},
		Extract:    extract,
		CookieName: app.cfg.CookieName,
	}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.guard,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.CookieMode = app.cfg.CookieMode
	router.CookieName = app.cfg.CookieName
	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.SessionService = app.sessionService
	router.MFAService = app.mfaService
	router.RolesService = app.rolesService
	router.APIKeyService = app.apiKeyService
	router.UserService = app.userService
	router.BootstrapService = app.bootstrapService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
