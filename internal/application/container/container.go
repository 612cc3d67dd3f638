// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/application/services"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Analytics services (stateless singletons)
	AnalyticsService          *services.AnalyticsService
	HourlyAnalyticsService    *services.HourlyAnalyticsService
	DashboardAnalyticsService *services.DashboardAnalyticsService
	EpinetAnalyticsService    *services.EpinetAnalyticsService
	EpinetTrackingService     *services.EpinetTrackingService
	EventProcessingService    *services.EventProcessingService
	LeadAnalyticsService      *services.LeadAnalyticsService
	ContentAnalyticsService   *services.ContentAnalyticsService

	// Infrastructure dependencies
	Logger        *logging.ChanneledLogger
	PerfTracker   *performance.Tracker
	TenantManager *tenant.Manager
	CacheManager  *manager.Manager
}

// NewContainer creates and wires all singleton services
func NewContainer(logger *logging.ChanneledLogger, perfTracker *performance.Tracker, tenantManager *tenant.Manager, cacheManager *manager.Manager) *Container {
	tracking := services.NewEpinetTrackingService(logger)
	hourly := services.NewHourlyAnalyticsService(logger, perfTracker, tracking)
	dashboard := services.NewDashboardAnalyticsService(logger, perfTracker)
	leads := services.NewLeadAnalyticsService(logger, perfTracker, hourly)

	return &Container{
		AnalyticsService:          services.NewAnalyticsService(logger, perfTracker, hourly, dashboard, leads),
		HourlyAnalyticsService:    hourly,
		DashboardAnalyticsService: dashboard,
		EpinetAnalyticsService:    services.NewEpinetAnalyticsService(logger, perfTracker),
		EpinetTrackingService:     tracking,
		EventProcessingService:    services.NewEventProcessingService(logger, tracking),
		LeadAnalyticsService:      leads,
		ContentAnalyticsService:   services.NewContentAnalyticsService(logger, perfTracker, hourly),

		Logger:        logger,
		PerfTracker:   perfTracker,
		TenantManager: tenantManager,
		CacheManager:  cacheManager,
	}
}
