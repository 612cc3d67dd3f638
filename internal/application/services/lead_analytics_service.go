package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/tractstack-starter-sub006/pkg/config"
)

// LeadAnalyticsService derives the lead conversion report from the site bins.
type LeadAnalyticsService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	hourly      *HourlyAnalyticsService
}

func NewLeadAnalyticsService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker, hourly *HourlyAnalyticsService) *LeadAnalyticsService {
	return &LeadAnalyticsService{
		logger:      logger,
		perfTracker: perfTracker,
		hourly:      hourly,
	}
}

// ComputeLeadMetrics computes the 24h / 7d / 28d and all-time visitor splits
// plus first-time/returning percentages. A cold cache triggers a full bulk
// load first; results are cached for a short TTL.
func (s *LeadAnalyticsService) ComputeLeadMetrics(ctx context.Context, tenantCtx *tenant.Context) (*analytics.LeadMetrics, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("compute_lead_metrics", tenantCtx.TenantID)
	defer marker.Complete()

	store := tenantCtx.CacheManager.Analytics()

	if cached, found := store.GetLeadMetrics(tenantCtx.TenantID); found {
		marker.SetSuccess(true)
		return cached.Data, nil
	}

	if store.GetLastFullHour(tenantCtx.TenantID) == "" || store.IsTenantCacheEmpty(tenantCtx.TenantID) {
		if err := s.hourly.LoadHourlyAnalytics(ctx, tenantCtx, config.AnalyticsWindowHours); err != nil {
			marker.SetError(err)
			return nil, err
		}
	}

	metrics24h := s.aggregateWindow(tenantCtx, analytics.HourKeysForRange(24))
	metrics7d := s.aggregateWindow(tenantCtx, analytics.HourKeysForRange(168))
	metrics28d := s.aggregateWindow(tenantCtx, analytics.HourKeysForRange(672))
	allTime := s.aggregateWindow(tenantCtx, store.SiteHourKeys(tenantCtx.TenantID))

	totalLeads, lastActivity := store.GetLeadScalars(tenantCtx.TenantID)

	metrics := &analytics.LeadMetrics{
		TotalVisits:  allTime.TotalVisits,
		LastActivity: lastActivity,
		FirstTime24h: len(metrics24h.AnonymousVisitors),
		Returning24h: len(metrics24h.KnownVisitors),
		FirstTime7d:  len(metrics7d.AnonymousVisitors),
		Returning7d:  len(metrics7d.KnownVisitors),
		FirstTime28d: len(metrics28d.AnonymousVisitors),
		Returning28d: len(metrics28d.KnownVisitors),
		TotalLeads:   totalLeads,
	}
	metrics.FirstTime24hPercentage, metrics.Returning24hPercentage = visitorSplit(metrics.FirstTime24h, metrics.Returning24h)
	metrics.FirstTime7dPercentage, metrics.Returning7dPercentage = visitorSplit(metrics.FirstTime7d, metrics.Returning7d)
	metrics.FirstTime28dPercentage, metrics.Returning28dPercentage = visitorSplit(metrics.FirstTime28d, metrics.Returning28d)

	store.SetLeadMetrics(tenantCtx.TenantID, &types.LeadMetricsCache{
		Data:       metrics,
		ComputedAt: time.Now().UTC(),
		TTL:        config.LeadMetricsTTL,
	})

	marker.SetSuccess(true)
	s.logger.Analytics().Info("Successfully computed lead metrics",
		"tenantId", tenantCtx.TenantID, "totalVisits", metrics.TotalVisits,
		"totalLeads", metrics.TotalLeads, "duration", time.Since(start))
	return metrics, nil
}

func (s *LeadAnalyticsService) aggregateWindow(tenantCtx *tenant.Context, hourKeys []string) *analytics.SiteRangeSummary {
	bins := tenantCtx.CacheManager.Analytics().GetSiteBinRange(tenantCtx.TenantID, hourKeys)
	return analytics.AggregateSiteRange(bins, hourKeys)
}

// visitorSplit derives the first-time and returning percentages, returning
// zeros when the window has no visitors at all.
func visitorSplit(firstTime, returning int) (float64, float64) {
	total := firstTime + returning
	if total == 0 {
		return 0, 0
	}
	return float64(firstTime) / float64(total) * 100, float64(returning) / float64(total) * 100
}
