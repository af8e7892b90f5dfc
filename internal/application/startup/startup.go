// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compass-coaching/compass-go/internal/application/container"
	"github.com/compass-coaching/compass-go/internal/infrastructure/email"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/persistence/database"
	"github.com/compass-coaching/compass-go/internal/presentation/http/server"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	// Step 1: Channeled logger first so every later step reports through it
	logger, err := logging.NewChanneledLogger(nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Startup().Info("Compass starting")

	// Step 2: Database connection and schema
	logger.Startup().Info("Connecting to database", "driver", config.DatabaseDriver)
	db, err := database.NewConnectionWithLogger(config.DatabaseDriver, config.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	tableCreator := database.NewTableCreator()
	if err := tableCreator.CreateSchema(db.DB); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Startup().Info("Database schema verified")

	// Step 3: Email service. A missing API key is tolerated outside
	// production so local runs work without Resend credentials.
	emailSvc, err := email.NewService()
	if err != nil {
		if os.Getenv("GIN_MODE") == "release" {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		logger.Startup().Warn("Email service unavailable, continuing without it", "error", err.Error())
		emailSvc = email.NopService()
	}

	// Step 4: Dependency injection container
	appContainer := container.NewContainer(db, logger, emailSvc)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 5: HTTP server
	httpServer := server.New(config.Port, appContainer)
	logger.Startup().Info("HTTP server initialized", "port", config.Port)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	shutdownStart := time.Now()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	appContainer.Broadcaster.Close()

	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	} else {
		logger.Shutdown().Info("Database closed successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return logger.Close()
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
