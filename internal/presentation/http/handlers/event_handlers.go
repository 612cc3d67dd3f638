package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/application/services"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// EventHandlers receives event batches and lead registrations.
type EventHandlers struct {
	eventProcessingService *services.EventProcessingService
	logger                 *logging.ChanneledLogger
}

func NewEventHandlers(eventProcessingService *services.EventProcessingService, logger *logging.ChanneledLogger) *EventHandlers {
	return &EventHandlers{
		eventProcessingService: eventProcessingService,
		logger:                 logger,
	}
}

// HandleEventStream handles POST /api/v1/state
func (h *EventHandlers) HandleEventStream(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var payload events.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	h.eventProcessingService.ProcessEvents(c.Request.Context(), tenantCtx, &payload)

	h.logger.Analytics().Debug("Event batch processed",
		"tenantId", tenantCtx.TenantID, "events", len(payload.Events), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"received": len(payload.Events)})
}

type createLeadRequest struct {
	FirstName      string `json:"firstName" binding:"required"`
	Email          string `json:"email" binding:"required"`
	Codeword       string `json:"codeword" binding:"required"`
	ContactPersona string `json:"contactPersona"`
	ShortBio       string `json:"shortBio"`
	FingerprintID  string `json:"fingerprintId"`
}

// HandleCreateLead handles POST /api/v1/leads
func (h *EventHandlers) HandleCreateLead(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead payload"})
		return
	}

	lead := &analytics.Lead{
		FirstName:      req.FirstName,
		Email:          req.Email,
		Codeword:       req.Codeword,
		ContactPersona: req.ContactPersona,
		ShortBio:       req.ShortBio,
		FingerprintID:  req.FingerprintID,
	}

	if err := h.eventProcessingService.CreateLead(c.Request.Context(), tenantCtx, lead); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create lead"})
		return
	}

	h.logger.Analytics().Info("Lead created",
		"tenantId", tenantCtx.TenantID, "leadId", lead.ID, "duration", time.Since(start))
	c.JSON(http.StatusCreated, gin.H{"leadId": lead.ID})
}
