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

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/application/container"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/presentation/http/server"
	"github.com/AtRiskMedia/tractstack-starter-sub006/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete multi-tenant startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig())

	// Step 1: Load tenant registry to discover all tenants
	logger.Startup().Info("Loading tenant registry...")
	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to load tenant registry: %w", err)
	}
	logger.Startup().Info("Tenant registry loaded", "tenants", len(registry.Tenants))

	// Step 2: Initialize cache system and tenant manager
	cacheManager := manager.NewManager(logger)
	tenantManager, err := tenant.NewManager(logger, cacheManager)
	if err != nil {
		return fmt.Errorf("failed to initialize tenant manager: %w", err)
	}

	// Step 3: Pre-activate registry tenants
	logger.Startup().Info("Starting tenant pre-activation...")
	if err := tenantManager.PreActivateAllTenants(); err != nil {
		return fmt.Errorf("tenant pre-activation failed: %w", err)
	}
	activeTenants := tenantManager.ActiveTenantIDs()
	logger.Startup().Info("Tenant pre-activation complete", "activeTenants", len(activeTenants))

	for _, tenantID := range activeTenants {
		cacheManager.InitializeTenant(tenantID)
	}

	// Step 4: Create dependency injection container
	appContainer := container.NewContainer(logger, perfTracker, tenantManager, cacheManager)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 5: Warm the default tenant's analytics in the background
	go warmDefaultTenant(appContainer)

	// Step 6: Start the expired-bin purge sweep
	go runPurgeSweep(ctx, appContainer)

	// Step 7: Start HTTP server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"activeTenants", len(activeTenants),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if err := tenantManager.Close(); err != nil {
		logger.Shutdown().Error("Error closing tenant manager", "error", err.Error())
	} else {
		logger.Shutdown().Info("Tenant manager closed successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// warmDefaultTenant bulk-loads the default tenant's hourly analytics so the
// first dashboard request answers from a warm cache.
func warmDefaultTenant(appContainer *container.Container) {
	logger := appContainer.Logger
	start := time.Now()

	tenantCtx, err := appContainer.TenantManager.NewContextFromID("default")
	if err != nil {
		logger.Startup().Warn("Skipping analytics warming, default tenant unavailable", "error", err)
		return
	}
	defer tenantCtx.Close()

	if err := appContainer.HourlyAnalyticsService.LoadHourlyAnalytics(context.Background(), tenantCtx, config.AnalyticsWindowHours); err != nil {
		logger.Startup().Error("Analytics warming failed", "tenantId", "default", "error", err, "duration", time.Since(start))
		return
	}
	logger.Startup().Info("Analytics warming complete", "tenantId", "default", "duration", time.Since(start))
}

// runPurgeSweep periodically evicts hour bins older than the rolling window.
func runPurgeSweep(ctx context.Context, appContainer *container.Container) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged := appContainer.CacheManager.PurgeExpiredBins(config.AnalyticsWindowHours)
			if purged > 0 {
				appContainer.Logger.Cache().Info("Purged expired analytics bins", "bins", purged)
			}
		}
	}
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
