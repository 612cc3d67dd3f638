package services

import (
	"context"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
)

// Analytics readiness states reported to callers.
const (
	StatusComplete   = "complete"
	StatusRefreshing = "refreshing"
	StatusLoading    = "loading"
)

// AllAnalytics bundles the dashboard and lead reports with the cache
// readiness status at the time of the request.
type AllAnalytics struct {
	Dashboard *analytics.DashboardAnalytics `json:"dashboard"`
	Leads     *analytics.LeadMetrics        `json:"leads"`
	Status    string                        `json:"status"`
}

// AnalyticsService orchestrates cache freshness for the combined analytics
// endpoint: it answers from the hour bins when they cover the current hour,
// and otherwise kicks off a background refresh while returning whatever is
// already cached.
type AnalyticsService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	hourly      *HourlyAnalyticsService
	dashboard   *DashboardAnalyticsService
	leads       *LeadAnalyticsService

	mu        sync.Mutex
	refreshes map[string]bool // tenantID -> refresh in flight
}

func NewAnalyticsService(
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
	hourly *HourlyAnalyticsService,
	dashboard *DashboardAnalyticsService,
	leads *LeadAnalyticsService,
) *AnalyticsService {
	return &AnalyticsService{
		logger:      logger,
		perfTracker: perfTracker,
		hourly:      hourly,
		dashboard:   dashboard,
		leads:       leads,
		refreshes:   make(map[string]bool),
	}
}

// GetAllAnalytics serves the combined dashboard + lead payload. When the
// watermark covers the current hour the response is "complete"; otherwise a
// background refresh starts (full window on an empty cache, gap-sized
// otherwise) and the stale cache is served with a "refreshing" or "loading"
// status.
func (s *AnalyticsService) GetAllAnalytics(ctx context.Context, tenantCtx *tenant.Context, duration string) (*AllAnalytics, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("get_all_analytics", tenantCtx.TenantID)
	defer marker.Complete()

	duration = normalizeDuration(duration)
	store := tenantCtx.CacheManager.Analytics()

	if store.GetLastFullHour(tenantCtx.TenantID) == analytics.CurrentHourKey() {
		dashboard, err := s.dashboard.ComputeDashboard(tenantCtx, duration)
		if err != nil {
			marker.SetError(err)
			return nil, err
		}
		leads, err := s.leads.ComputeLeadMetrics(ctx, tenantCtx)
		if err != nil {
			marker.SetError(err)
			return nil, err
		}
		marker.SetSuccess(true)
		return &AllAnalytics{Dashboard: dashboard, Leads: leads, Status: StatusComplete}, nil
	}

	cacheEmpty := store.IsTenantCacheEmpty(tenantCtx.TenantID)
	s.startBackgroundRefresh(tenantCtx)

	result := &AllAnalytics{Status: StatusRefreshing}
	if cacheEmpty {
		// Nothing to aggregate yet; serve zeroed payloads while the full
		// window loads.
		result.Status = StatusLoading
		result.Dashboard = emptyDashboardAnalytics()
		result.Leads = &analytics.LeadMetrics{}
	} else {
		dashboard, err := s.dashboard.ComputeDashboard(tenantCtx, duration)
		if err != nil {
			marker.SetError(err)
			return nil, err
		}
		leads, err := s.leads.ComputeLeadMetrics(ctx, tenantCtx)
		if err != nil {
			marker.SetError(err)
			return nil, err
		}
		result.Dashboard = dashboard
		result.Leads = leads
	}

	marker.SetSuccess(true)
	s.logger.Analytics().Info("Served analytics with pending refresh",
		"tenantId", tenantCtx.TenantID, "status", result.Status, "duration", time.Since(start))
	return result, nil
}

// startBackgroundRefresh launches at most one refresh per tenant at a time.
func (s *AnalyticsService) startBackgroundRefresh(tenantCtx *tenant.Context) {
	s.mu.Lock()
	if s.refreshes[tenantCtx.TenantID] {
		s.mu.Unlock()
		return
	}
	s.refreshes[tenantCtx.TenantID] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.refreshes, tenantCtx.TenantID)
			s.mu.Unlock()
		}()

		if err := s.hourly.RefreshHourlyAnalytics(context.Background(), tenantCtx); err != nil {
			s.logger.Analytics().Error("Background analytics refresh failed",
				"tenantId", tenantCtx.TenantID, "error", err)
		}
	}()
}

func normalizeDuration(duration string) string {
	switch duration {
	case "daily", "weekly", "monthly":
		return duration
	default:
		return "weekly"
	}
}
