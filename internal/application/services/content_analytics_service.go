package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
)

// ContentAnalyticsService derives per-content reports from the content bins.
type ContentAnalyticsService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	hourly      *HourlyAnalyticsService
}

func NewContentAnalyticsService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker, hourly *HourlyAnalyticsService) *ContentAnalyticsService {
	return &ContentAnalyticsService{
		logger:      logger,
		perfTracker: perfTracker,
		hourly:      hourly,
	}
}

// ComputeStoryfragmentAnalytics returns one report row per tracked content
// item with total / 24h / 7d / 28d action and unique-visitor counts. A stale
// watermark triggers an incremental refresh first.
func (s *ContentAnalyticsService) ComputeStoryfragmentAnalytics(ctx context.Context, tenantCtx *tenant.Context) ([]*analytics.StoryfragmentAnalytics, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("compute_storyfragment_analytics", tenantCtx.TenantID)
	defer marker.Complete()

	store := tenantCtx.CacheManager.Analytics()

	if store.GetLastFullHour(tenantCtx.TenantID) != analytics.CurrentHourKey() {
		if err := s.hourly.RefreshHourlyAnalytics(ctx, tenantCtx); err != nil {
			marker.SetError(err)
			return nil, err
		}
	}

	hours24 := analytics.HourKeysForRange(24)
	hours7d := analytics.HourKeysForRange(168)
	hours28d := analytics.HourKeysForRange(672)

	totalLeads, _ := store.GetLeadScalars(tenantCtx.TenantID)
	slugByID := make(map[string]string)
	for slug, id := range store.GetSlugMap(tenantCtx.TenantID) {
		slugByID[id] = slug
	}

	contentIDs := store.ContentIDs(tenantCtx.TenantID)
	sort.Strings(contentIDs)

	result := make([]*analytics.StoryfragmentAnalytics, 0, len(contentIDs))
	for _, contentID := range contentIDs {
		allHours := store.ContentHourKeys(tenantCtx.TenantID, contentID)

		total := s.aggregateContent(tenantCtx, contentID, allHours)
		last24h := s.aggregateContent(tenantCtx, contentID, hours24)
		last7d := s.aggregateContent(tenantCtx, contentID, hours7d)
		last28d := s.aggregateContent(tenantCtx, contentID, hours28d)

		result = append(result, &analytics.StoryfragmentAnalytics{
			ID:                    contentID,
			Slug:                  slugByID[contentID],
			TotalActions:          total.Actions,
			UniqueVisitors:        len(total.UniqueVisitors),
			Last24hActions:        last24h.Actions,
			Last7dActions:         last7d.Actions,
			Last28dActions:        last28d.Actions,
			Last24hUniqueVisitors: len(last24h.UniqueVisitors),
			Last7dUniqueVisitors:  len(last7d.UniqueVisitors),
			Last28dUniqueVisitors: len(last28d.UniqueVisitors),
			TotalLeads:            totalLeads,
		})
	}

	marker.SetSuccess(true)
	s.logger.Analytics().Info("Successfully computed storyfragment analytics",
		"tenantId", tenantCtx.TenantID, "items", len(result), "duration", time.Since(start))
	return result, nil
}

// GetHourlyNodeActivity returns per-hour event totals per content item over
// the window, derived from one epinet's step nodes.
func (s *ContentAnalyticsService) GetHourlyNodeActivity(tenantCtx *tenant.Context, epinetID string, startHour, endHour *int) (analytics.HourlyNodeActivity, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("get_hourly_node_activity", tenantCtx.TenantID)
	defer marker.Complete()

	var hourKeys []string
	if startHour != nil && endHour != nil {
		hourKeys = analytics.HourKeysForOffsetRange(*startHour, *endHour)
	} else {
		hourKeys = analytics.HourKeysForRange(168)
	}

	store := tenantCtx.CacheManager.Analytics()
	bins, _ := store.GetEpinetBinRange(tenantCtx.TenantID, epinetID, hourKeys)

	activity := make(analytics.HourlyNodeActivity)
	for _, hourKey := range hourKeys {
		bin, exists := bins[hourKey]
		if !exists {
			continue
		}
		for nodeID, stepData := range bin.Steps {
			contentID := contentIDFromNodeID(nodeID)
			if contentID == "" || len(stepData.Visitors) == 0 {
				continue
			}
			if activity[hourKey] == nil {
				activity[hourKey] = make(map[string]int)
			}
			activity[hourKey][contentID] += len(stepData.Visitors)
		}
	}

	marker.SetSuccess(true)
	s.logger.Analytics().Info("Successfully retrieved hourly node activity",
		"tenantId", tenantCtx.TenantID, "epinetId", epinetID,
		"hours", len(activity), "duration", time.Since(start))
	return activity, nil
}

func (s *ContentAnalyticsService) aggregateContent(tenantCtx *tenant.Context, contentID string, hourKeys []string) *analytics.ContentRangeSummary {
	bins := tenantCtx.CacheManager.Analytics().GetContentBinRange(tenantCtx.TenantID, contentID, hourKeys)
	return analytics.AggregateContentRange(bins, hourKeys)
}

// contentIDFromNodeID extracts the trailing content id from a step node id
// like "commitmentAction-StoryFragment-ENTERED-01JD2RFH35HX8MQMBJ3344KHS5".
func contentIDFromNodeID(nodeID string) string {
	idx := strings.LastIndex(nodeID, "-")
	if idx == -1 || idx == len(nodeID)-1 {
		return ""
	}
	return nodeID[idx+1:]
}
