// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/notely-dev/notely/internal/api"
	"github.com/notely-dev/notely/internal/api/handlers"
	"github.com/notely-dev/notely/internal/auth"
	"github.com/notely-dev/notely/internal/config"
	"github.com/notely-dev/notely/internal/db"
	"github.com/notely-dev/notely/internal/logger"
	"github.com/notely-dev/notely/internal/policy"
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	// Set version in handlers
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	// Load configuration
	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override port from CLI flag if provided
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	// Initialize logger
	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	slog.Info("Starting Notely server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	// Initialize database
	database, err := db.New(appCfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	// Run migrations
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	// Initialize the access policy engine
	if err := policy.Init(slog.Default()); err != nil {
		return fmt.Errorf("failed to initialize access policy: %w", err)
	}

	// Create default admin user if configured
	if err := db.CreateDefaultAdmin(database); err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	// Initialize authenticator
	authenticator, err := createAuthenticator(ctx, appCfg, database)
	if err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}
	slog.Info("Authenticator initialized", "type", appCfg.Auth.Type)

	router := api.NewRouter(appCfg, database, authenticator)

	addr := fmt.Sprintf(":%d", appCfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server stopped")

	slog.Info("Notely exited")
	return nil
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg)
	}()

	// Wait for signal or error
	select {
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig)
		cancel()
		// Wait for server to finish
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// createAuthenticator creates an authenticator based on configuration.
func createAuthenticator(ctx context.Context, cfg *config.Config, database *gorm.DB) (auth.Authenticator, error) {
	switch cfg.Auth.Type {
	case "basic", "":
		return auth.NewBasicAuthenticator(database, cfg.Auth.JWTSecret), nil
	case "oidc":
		if cfg.Auth.OIDC.IssuerURL == "" {
			return nil, fmt.Errorf("OIDC issuer URL is required when auth type is oidc")
		}
		return auth.NewOIDCAuthenticator(ctx, auth.OIDCConfig{
			IssuerURL:    cfg.Auth.OIDC.IssuerURL,
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			RedirectURL:  cfg.Auth.OIDC.RedirectURL,
		}, database, cfg.Auth.JWTSecret)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s (supported: basic, oidc)", cfg.Auth.Type)
	}
}
