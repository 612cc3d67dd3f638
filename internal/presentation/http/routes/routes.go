// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/application/container"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	analyticsHandlers := handlers.NewAnalyticsHandlers(
		container.AnalyticsService,
		container.DashboardAnalyticsService,
		container.EpinetAnalyticsService,
		container.LeadAnalyticsService,
		container.ContentAnalyticsService,
		container.Logger,
	)
	eventHandlers := handlers.NewEventHandlers(container.EventProcessingService, container.Logger)
	healthHandlers := handlers.NewHealthHandlers(container.TenantManager, container.PerfTracker)

	r.GET("/api/v1/health", healthHandlers.HandleHealth)

	// API routes with tenant middleware
	api := r.Group("/api/v1")
	api.Use(middleware.TenantMiddleware(container.TenantManager, container.PerfTracker))
	{
		// Event ingestion
		api.POST("/state", eventHandlers.HandleEventStream)
		api.POST("/leads", eventHandlers.HandleCreateLead)

		// Analytics endpoints
		analytics := api.Group("/analytics")
		{
			analytics.GET("/all", analyticsHandlers.HandleAllAnalytics)
			analytics.GET("/dashboard", analyticsHandlers.HandleDashboardAnalytics)
			analytics.GET("/leads", analyticsHandlers.HandleLeadMetrics)
			analytics.GET("/storyfragments", analyticsHandlers.HandleStoryfragmentAnalytics)
			analytics.GET("/epinets/:id", analyticsHandlers.HandleEpinetSankey)
			analytics.POST("/epinets/:id", analyticsHandlers.HandleEpinetCustomMetrics)
			analytics.GET("/epinets/:id/activity", analyticsHandlers.HandleHourlyNodeActivity)
			analytics.GET("/status", healthHandlers.HandleAnalyticsStatus)
		}
	}

	return r
}
