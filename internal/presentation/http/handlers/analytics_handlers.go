// Package handlers provides HTTP handlers for analytics endpoints
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/application/services"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandlers contains all analytics-related HTTP handlers
type AnalyticsHandlers struct {
	analyticsService          *services.AnalyticsService
	dashboardAnalyticsService *services.DashboardAnalyticsService
	epinetAnalyticsService    *services.EpinetAnalyticsService
	leadAnalyticsService      *services.LeadAnalyticsService
	contentAnalyticsService   *services.ContentAnalyticsService
	logger                    *logging.ChanneledLogger
}

// NewAnalyticsHandlers creates analytics handlers with injected dependencies
func NewAnalyticsHandlers(
	analyticsService *services.AnalyticsService,
	dashboardAnalyticsService *services.DashboardAnalyticsService,
	epinetAnalyticsService *services.EpinetAnalyticsService,
	leadAnalyticsService *services.LeadAnalyticsService,
	contentAnalyticsService *services.ContentAnalyticsService,
	logger *logging.ChanneledLogger,
) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		analyticsService:          analyticsService,
		dashboardAnalyticsService: dashboardAnalyticsService,
		epinetAnalyticsService:    epinetAnalyticsService,
		leadAnalyticsService:      leadAnalyticsService,
		contentAnalyticsService:   contentAnalyticsService,
		logger:                    logger,
	}
}

// HandleAllAnalytics handles GET /api/v1/analytics/all
func (h *AnalyticsHandlers) HandleAllAnalytics(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	duration := c.DefaultQuery("duration", "weekly")
	result, err := h.analyticsService.GetAllAnalytics(c.Request.Context(), tenantCtx, duration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Analytics().Info("All analytics request completed",
		"tenantId", tenantCtx.TenantID, "status", result.Status, "duration", time.Since(start))
	c.JSON(http.StatusOK, result)
}

// HandleDashboardAnalytics handles GET /api/v1/analytics/dashboard
func (h *AnalyticsHandlers) HandleDashboardAnalytics(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	duration := c.DefaultQuery("duration", "weekly")
	dashboard, err := h.dashboardAnalyticsService.ComputeDashboard(tenantCtx, duration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Analytics().Info("Dashboard analytics request completed",
		"tenantId", tenantCtx.TenantID, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard})
}

// HandleLeadMetrics handles GET /api/v1/analytics/leads
func (h *AnalyticsHandlers) HandleLeadMetrics(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	leadMetrics, err := h.leadAnalyticsService.ComputeLeadMetrics(c.Request.Context(), tenantCtx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Analytics().Info("Lead analytics request completed",
		"tenantId", tenantCtx.TenantID, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"leads": leadMetrics})
}

// HandleStoryfragmentAnalytics handles GET /api/v1/analytics/storyfragments
func (h *AnalyticsHandlers) HandleStoryfragmentAnalytics(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	storyfragments, err := h.contentAnalyticsService.ComputeStoryfragmentAnalytics(c.Request.Context(), tenantCtx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Analytics().Info("Storyfragment analytics request completed",
		"tenantId", tenantCtx.TenantID, "items", len(storyfragments), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"storyfragments": storyfragments})
}

// HandleEpinetSankey handles GET /api/v1/analytics/epinets/:id
func (h *AnalyticsHandlers) HandleEpinetSankey(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	epinetID := c.Param("id")
	duration := c.DefaultQuery("duration", "weekly")

	epinet, err := h.epinetAnalyticsService.GetEpinetMetrics(tenantCtx, epinetID, duration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Analytics().Info("Epinet analytics request completed",
		"tenantId", tenantCtx.TenantID, "epinetId", epinetID, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"epinet": epinet})
}

// HandleEpinetCustomMetrics handles POST /api/v1/analytics/epinets/:id
func (h *AnalyticsHandlers) HandleEpinetCustomMetrics(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	epinetID := c.Param("id")

	var filters services.SankeyFilters
	if err := c.ShouldBindJSON(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter payload"})
		return
	}

	metrics, err := h.epinetAnalyticsService.GetEpinetCustomMetrics(tenantCtx, epinetID, &filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Analytics().Info("Epinet custom metrics request completed",
		"tenantId", tenantCtx.TenantID, "epinetId", epinetID,
		"visitorType", filters.VisitorType, "duration", time.Since(start))
	c.JSON(http.StatusOK, metrics)
}

// HandleHourlyNodeActivity handles GET /api/v1/analytics/epinets/:id/activity
func (h *AnalyticsHandlers) HandleHourlyNodeActivity(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	epinetID := c.Param("id")
	startHour := parseHourParam(c, "startHour")
	endHour := parseHourParam(c, "endHour")

	activity, err := h.contentAnalyticsService.GetHourlyNodeActivity(tenantCtx, epinetID, startHour, endHour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Analytics().Info("Hourly node activity request completed",
		"tenantId", tenantCtx.TenantID, "epinetId", epinetID, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"hourlyNodeActivity": activity})
}

// parseHourParam reads an optional hours-ago query parameter.
func parseHourParam(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}
