package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	domainEvents "github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/security"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
)

// EventProcessingService folds inbound events into the current hour's bins
// and persists them. Merging is best-effort: failures are logged, never
// propagated to the caller's request path.
type EventProcessingService struct {
	logger   *logging.ChanneledLogger
	tracking *EpinetTrackingService
}

func NewEventProcessingService(logger *logging.ChanneledLogger, tracking *EpinetTrackingService) *EventProcessingService {
	return &EventProcessingService{logger: logger, tracking: tracking}
}

// ProcessEvents applies one visitor's event batch to the current hour's site
// and content bins, records epinet steps, and persists action rows. Only the
// current hour is ever touched.
func (s *EventProcessingService) ProcessEvents(ctx context.Context, tenantCtx *tenant.Context, payload *domainEvents.Payload) {
	store := tenantCtx.CacheManager.Analytics()
	currentHour := analytics.CurrentHourKey()
	fingerprintID := payload.Visit.FingerprintID

	siteBin := store.GetOrCreateSiteBin(tenantCtx.TenantID, currentHour)
	siteBin.TotalVisits++
	if payload.Visit.HasLead {
		siteBin.KnownVisitors[fingerprintID] = true
	} else {
		siteBin.AnonymousVisitors[fingerprintID] = true
	}

	for _, event := range payload.Events {
		if event.ID == "" {
			continue
		}

		if !event.IsBelief() {
			siteBin.EventCounts[event.Verb]++
		}

		if event.Type == analytics.ObjectTypeStoryFragment || event.Type == analytics.ObjectTypePane {
			contentBin := store.GetOrCreateContentBin(tenantCtx.TenantID, event.ID, currentHour)
			contentBin.UniqueVisitors[fingerprintID] = true
			contentBin.Actions++
			contentBin.EventCounts[event.Verb]++
			if payload.Visit.HasLead {
				contentBin.KnownVisitors[fingerprintID] = true
			} else {
				contentBin.AnonymousVisitors[fingerprintID] = true
			}
		}

		s.tracking.ProcessEpinetEvent(ctx, tenantCtx, event, fingerprintID)

		if !event.IsBelief() {
			s.persistActionEvent(ctx, tenantCtx, event, payload.Visit)
		}
	}
}

func (s *EventProcessingService) persistActionEvent(ctx context.Context, tenantCtx *tenant.Context, event domainEvents.Event, visit domainEvents.Visit) {
	err := tenantCtx.EventRepo().StoreActionEvent(ctx, &analytics.ActionEvent{
		ObjectID:      event.ID,
		ObjectType:    event.Type,
		Verb:          event.Verb,
		FingerprintID: visit.FingerprintID,
		VisitID:       visit.VisitID,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		s.logger.Analytics().Error("Failed to persist action event",
			"tenantId", tenantCtx.TenantID, "objectId", event.ID, "verb", event.Verb, "error", err)
	}
}

// CreateLead registers a new lead profile, links its fingerprint, and bumps
// the live lead counter. The email is encrypted at rest with the tenant's
// AES key when one is configured.
func (s *EventProcessingService) CreateLead(ctx context.Context, tenantCtx *tenant.Context, lead *analytics.Lead) error {
	if lead.ID == "" {
		lead.ID = security.GenerateULID()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	if tenantCtx.Config.AESKey != "" && lead.Email != "" {
		encrypted, err := security.Encrypt(lead.Email, tenantCtx.Config.AESKey)
		if err != nil {
			s.logger.Tenant().Error("Email encryption failed, storing raw value",
				"tenantId", tenantCtx.TenantID, "error", err)
		} else {
			lead.Email = encrypted
		}
	}

	if err := tenantCtx.LeadRepo().CreateLead(ctx, lead); err != nil {
		return err
	}

	s.IncrementLeadCount(tenantCtx)
	s.logger.Analytics().Info("Lead created", "tenantId", tenantCtx.TenantID, "leadId", lead.ID)
	return nil
}

// IncrementLeadCount bumps the cached all-time lead total.
func (s *EventProcessingService) IncrementLeadCount(tenantCtx *tenant.Context) {
	tenantCtx.CacheManager.Analytics().IncrementTotalLeads(tenantCtx.TenantID)
}
