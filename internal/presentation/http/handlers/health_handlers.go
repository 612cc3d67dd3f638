package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// HealthHandlers exposes liveness and cache status endpoints.
type HealthHandlers struct {
	tenantManager *tenant.Manager
	perfTracker   *performance.Tracker
	started       time.Time
}

func NewHealthHandlers(tenantManager *tenant.Manager, perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{
		tenantManager: tenantManager,
		perfTracker:   perfTracker,
		started:       time.Now().UTC(),
	}
}

// HandleHealth handles GET /api/v1/health
func (h *HealthHandlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(h.started).String(),
		"activeTenants": len(h.tenantManager.ActiveTenantIDs()),
	})
}

// HandleAnalyticsStatus handles GET /api/v1/analytics/status
func (h *HealthHandlers) HandleAnalyticsStatus(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	summary := tenantCtx.CacheManager.Analytics().GetAnalyticsSummary(tenantCtx.TenantID)
	c.JSON(http.StatusOK, gin.H{
		"cache":       summary,
		"performance": h.perfTracker.Summary(),
	})
}
