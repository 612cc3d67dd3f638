package services

import (
	"sort"
	"strings"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/tractstack-starter-sub006/pkg/config"
)

// DashboardAnalyticsService derives the aggregate dashboard payload from the
// epinet hour bins. It never refreshes the bins itself; freshness is the
// orchestrator's job.
type DashboardAnalyticsService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

func NewDashboardAnalyticsService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DashboardAnalyticsService {
	return &DashboardAnalyticsService{
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ComputeDashboard builds stats, per-verb line series, and the hot-content
// list for the requested duration ("daily", "weekly", "monthly"). Results are
// cached per tenant for a short TTL; an empty store yields a zeroed payload.
func (s *DashboardAnalyticsService) ComputeDashboard(tenantCtx *tenant.Context, duration string) (*analytics.DashboardAnalytics, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("compute_dashboard_analytics", tenantCtx.TenantID)
	defer marker.Complete()

	store := tenantCtx.CacheManager.Analytics()

	if cached, found := store.GetDashboardData(tenantCtx.TenantID); found {
		marker.SetSuccess(true)
		return cached.Data, nil
	}

	epinetIDs := store.EpinetIDs(tenantCtx.TenantID)
	if len(epinetIDs) == 0 {
		marker.SetSuccess(true)
		return emptyDashboardAnalytics(), nil
	}
	sort.Strings(epinetIDs)

	hourKeys := analytics.HourKeysForRange(durationToHours(duration))

	dashboard := &analytics.DashboardAnalytics{
		Stats: analytics.TimeRangeStats{
			Daily:   s.countAllEvents(tenantCtx, epinetIDs, analytics.HourKeysForRange(24)),
			Weekly:  s.countAllEvents(tenantCtx, epinetIDs, analytics.HourKeysForRange(168)),
			Monthly: s.countAllEvents(tenantCtx, epinetIDs, analytics.HourKeysForRange(672)),
		},
		Line:       s.computeLineData(tenantCtx, epinetIDs, hourKeys, duration),
		HotContent: s.computeHotContent(tenantCtx, epinetIDs, hourKeys),
	}

	store.SetDashboardData(tenantCtx.TenantID, &types.DashboardCache{
		Data:       dashboard,
		ComputedAt: time.Now().UTC(),
		TTL:        config.DashboardTTL,
	})

	marker.SetSuccess(true)
	s.logger.Analytics().Info("Successfully computed dashboard analytics",
		"tenantId", tenantCtx.TenantID, "duration", duration,
		"lineSeries", len(dashboard.Line), "hotContent", len(dashboard.HotContent),
		"elapsed", time.Since(start))
	return dashboard, nil
}

// countAllEvents totals step visitors across every epinet over the window.
// Each visitor touching a step counts as one event.
func (s *DashboardAnalyticsService) countAllEvents(tenantCtx *tenant.Context, epinetIDs, hourKeys []string) int {
	store := tenantCtx.CacheManager.Analytics()

	total := 0
	for _, epinetID := range epinetIDs {
		bins, _ := store.GetEpinetBinRange(tenantCtx.TenantID, epinetID, hourKeys)
		for _, hourKey := range hourKeys {
			bin, exists := bins[hourKey]
			if !exists {
				continue
			}
			for _, stepData := range bin.Steps {
				total += len(stepData.Visitors)
			}
		}
	}
	return total
}

// computeLineData buckets step events into periods (hours for daily, days
// otherwise) and returns one series per event verb.
func (s *DashboardAnalyticsService) computeLineData(tenantCtx *tenant.Context, epinetIDs, hourKeys []string, duration string) []analytics.LineDataSeries {
	periods := periodsForDuration(duration)
	store := tenantCtx.CacheManager.Analytics()

	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	countsByVerb := make(map[string]map[int]int)
	verbOrder := make([]string, 0)

	for _, epinetID := range epinetIDs {
		bins, _ := store.GetEpinetBinRange(tenantCtx.TenantID, epinetID, hourKeys)
		for _, hourKey := range hourKeys {
			bin, exists := bins[hourKey]
			if !exists {
				continue
			}

			hourTime, err := analytics.ParseHourKey(hourKey)
			if err != nil {
				continue
			}

			var periodIndex int
			if duration == "daily" {
				periodIndex = int(now.Sub(hourTime).Hours())
			} else {
				dayStart := time.Date(hourTime.Year(), hourTime.Month(), hourTime.Day(), 0, 0, 0, 0, time.UTC)
				periodIndex = int(todayStart.Sub(dayStart).Hours() / 24)
				if periodIndex > periods-1 {
					periodIndex = periods - 1
				}
			}
			if periodIndex < 0 || periodIndex >= periods {
				continue
			}

			for nodeID, stepData := range bin.Steps {
				verb := eventTypeFromNodeID(nodeID)
				if verb == "" {
					continue
				}
				if _, seen := countsByVerb[verb]; !seen {
					countsByVerb[verb] = make(map[int]int)
					verbOrder = append(verbOrder, verb)
				}
				countsByVerb[verb][periodIndex] += len(stepData.Visitors)
			}
		}
	}

	sort.Strings(verbOrder)

	series := make([]analytics.LineDataSeries, 0, len(verbOrder))
	for _, verb := range verbOrder {
		points := make([]analytics.LineDataPoint, periods)
		for i := 0; i < periods; i++ {
			points[i] = analytics.LineDataPoint{X: i, Y: countsByVerb[verb][i]}
		}
		series = append(series, analytics.LineDataSeries{ID: verb, Data: points})
	}
	return series
}

// computeHotContent totals step events per content item over the window,
// sorted by event count descending.
func (s *DashboardAnalyticsService) computeHotContent(tenantCtx *tenant.Context, epinetIDs, hourKeys []string) []analytics.HotItem {
	store := tenantCtx.CacheManager.Analytics()

	counts := make(map[string]int)
	order := make([]string, 0)

	for _, epinetID := range epinetIDs {
		bins, _ := store.GetEpinetBinRange(tenantCtx.TenantID, epinetID, hourKeys)
		for _, hourKey := range hourKeys {
			bin, exists := bins[hourKey]
			if !exists {
				continue
			}
			for nodeID, stepData := range bin.Steps {
				contentID := contentIDFromNodeID(nodeID)
				if contentID == "" {
					continue
				}
				if _, seen := counts[contentID]; !seen {
					order = append(order, contentID)
				}
				counts[contentID] += len(stepData.Visitors)
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	items := make([]analytics.HotItem, 0, len(order))
	for _, contentID := range order {
		items = append(items, analytics.HotItem{ID: contentID, TotalEvents: counts[contentID]})
	}
	return items
}

func emptyDashboardAnalytics() *analytics.DashboardAnalytics {
	return &analytics.DashboardAnalytics{
		Line:       []analytics.LineDataSeries{},
		HotContent: []analytics.HotItem{},
	}
}

func periodsForDuration(duration string) int {
	switch duration {
	case "daily":
		return 24
	case "monthly":
		return 28
	default:
		return 7
	}
}

// eventTypeFromNodeID recovers the event verb from a step node id. Belief
// nodes carry the verb in the second segment, identifyAs nodes collapse to a
// single pseudo-verb, and action nodes carry the verb in the third segment.
func eventTypeFromNodeID(nodeID string) string {
	parts := strings.Split(nodeID, "-")
	switch parts[0] {
	case analytics.GateBelief:
		if len(parts) > 1 {
			return parts[1]
		}
	case analytics.GateIdentifyAs:
		return "IDENTIFY_AS"
	case analytics.GateCommitmentAction, analytics.GateConversionAction:
		if len(parts) > 2 {
			return parts[2]
		}
	}
	return ""
}
