package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/tractstack-starter-sub006/pkg/config"
)

// HourlyAnalyticsService rebuilds hourly bins from the persistent store. The
// bulk loader replaces a whole hour window atomically; the incremental
// refresher bounds reload cost to the gap since the last full hour.
type HourlyAnalyticsService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	tracking    *EpinetTrackingService
}

func NewHourlyAnalyticsService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker, tracking *EpinetTrackingService) *HourlyAnalyticsService {
	return &HourlyAnalyticsService{
		logger:      logger,
		perfTracker: perfTracker,
		tracking:    tracking,
	}
}

// LoadHourlyAnalytics rebuilds the last `hours` hours of site, content and
// epinet bins from the database. Any query failure aborts the load with the
// store untouched: stale data is preferred over partial data.
func (s *HourlyAnalyticsService) LoadHourlyAnalytics(ctx context.Context, tenantCtx *tenant.Context, hours int) error {
	start := time.Now()
	marker := s.perfTracker.StartOperation("bulk_load_hourly_analytics", tenantCtx.TenantID)
	defer marker.Complete()
	marker.AddMetadata("hours", hours)

	hourKeys := analytics.HourKeysForRange(hours)
	if len(hourKeys) == 0 {
		marker.SetSuccess(true)
		return nil
	}

	// hourKeys is most-recent-first; the window is [oldest, newest+1h).
	startTime, err := analytics.ParseHourKey(hourKeys[len(hourKeys)-1])
	if err != nil {
		marker.SetError(err)
		return err
	}
	newest, err := analytics.ParseHourKey(hourKeys[0])
	if err != nil {
		marker.SetError(err)
		return err
	}
	endTime := newest.Add(time.Hour)

	eventRepo := tenantCtx.EventRepo()
	contentRepo := tenantCtx.ContentRepo()

	totalLeads, err := eventRepo.CountLeads(ctx)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("bulk load aborted: %w", err)
	}
	lastActivity, err := eventRepo.LastActivity(ctx)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("bulk load aborted: %w", err)
	}
	contentRows, err := eventRepo.ContentHourlyRows(ctx, startTime, endTime)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("bulk load aborted: %w", err)
	}
	siteRows, err := eventRepo.SiteHourlyRows(ctx, startTime, endTime)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("bulk load aborted: %w", err)
	}
	slugMap, err := contentRepo.StoryFragmentSlugMap(ctx)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("bulk load aborted: %w", err)
	}

	inWindow := make(map[string]bool, len(hourKeys))
	for _, hourKey := range hourKeys {
		inWindow[hourKey] = true
	}

	// Pre-initialize every hour so zero-activity hours are present, not
	// absent: the range aggregator treats both identically.
	siteBins := make(map[string]*analytics.HourlySiteData, len(hourKeys))
	for _, hourKey := range hourKeys {
		siteBins[hourKey] = analytics.NewEmptyHourlySiteData()
	}

	for _, row := range siteRows {
		if !inWindow[row.HourKey] {
			continue
		}
		bin := analytics.NewEmptyHourlySiteData()
		bin.TotalVisits = row.TotalVisits
		for _, id := range row.AnonymousFingerprintIDs {
			bin.AnonymousVisitors[id] = true
		}
		for _, id := range row.KnownFingerprintIDs {
			bin.KnownVisitors[id] = true
		}
		for verb, count := range row.EventCounts {
			bin.EventCounts[verb] = count
		}
		siteBins[row.HourKey] = bin
	}

	contentBins := make(map[string]*analytics.HourlyContentData)
	for _, row := range contentRows {
		if !inWindow[row.HourKey] || row.ObjectID == "" {
			continue
		}

		bin := analytics.NewEmptyHourlyContentData()
		bin.Actions = row.TotalActions
		for verb, count := range row.EventCounts {
			bin.EventCounts[verb] = count
		}

		// A visitor is known at the content level iff known at the site
		// level for the same hour.
		siteBin := siteBins[row.HourKey]
		for _, id := range row.FingerprintIDs {
			bin.UniqueVisitors[id] = true
			if siteBin.KnownVisitors[id] {
				bin.KnownVisitors[id] = true
			}
			if siteBin.AnonymousVisitors[id] {
				bin.AnonymousVisitors[id] = true
			}
		}

		contentBins[row.ObjectID+":"+row.HourKey] = bin
	}

	epinetBins, err := s.buildEpinetBins(ctx, tenantCtx, hourKeys, inWindow, startTime, endTime)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("bulk load aborted: %w", err)
	}

	store := tenantCtx.CacheManager.Analytics()
	store.ReplaceRange(tenantCtx.TenantID, hourKeys, siteBins, contentBins,
		analytics.CurrentHourKey(), totalLeads, lastActivity, slugMap)
	store.ReplaceEpinetRange(tenantCtx.TenantID, hourKeys, epinetBins)

	marker.SetSuccess(true)
	s.logger.Analytics().Info("Bulk loaded hourly analytics",
		"tenantId", tenantCtx.TenantID, "hours", hours,
		"siteRows", len(siteRows), "contentRows", len(contentRows),
		"epinetBins", len(epinetBins), "duration", time.Since(start))
	return nil
}

// RefreshHourlyAnalytics reloads only the staleness gap since the last full
// hour. A failure leaves the watermark unchanged so the next attempt retries
// the same gap.
func (s *HourlyAnalyticsService) RefreshHourlyAnalytics(ctx context.Context, tenantCtx *tenant.Context) error {
	store := tenantCtx.CacheManager.Analytics()
	lastFullHour := store.GetLastFullHour(tenantCtx.TenantID)
	currentHour := analytics.CurrentHourKey()

	if lastFullHour == currentHour {
		return nil
	}

	hours := config.AnalyticsWindowHours
	if lastFullHour != "" {
		gap, err := analytics.HoursBetween(lastFullHour, currentHour)
		if err != nil {
			return fmt.Errorf("invalid watermark %q: %w", lastFullHour, err)
		}
		if gap < 1 {
			gap = 1
		}
		hours = gap
	}

	return s.LoadHourlyAnalytics(ctx, tenantCtx, hours)
}

// buildEpinetBins replays the window's raw action and belief events through
// the funnel step matcher, then derives chronological transitions per hour.
// Keys are "epinetID:hourKey".
func (s *HourlyAnalyticsService) buildEpinetBins(
	ctx context.Context,
	tenantCtx *tenant.Context,
	hourKeys []string,
	inWindow map[string]bool,
	startTime, endTime time.Time,
) (map[string]*analytics.HourlyEpinetData, error) {
	contentRepo := tenantCtx.ContentRepo()
	eventRepo := tenantCtx.EventRepo()

	epinets, err := contentRepo.ActiveEpinets(ctx)
	if err != nil {
		return nil, err
	}

	bins := make(map[string]*analytics.HourlyEpinetData)
	for _, epinet := range epinets {
		for _, hourKey := range hourKeys {
			bins[epinet.ID+":"+hourKey] = analytics.NewEmptyHourlyEpinetData()
		}
	}
	if len(epinets) == 0 {
		return bins, nil
	}

	titles, err := contentRepo.ContentTitleMap(ctx)
	if err != nil {
		return nil, err
	}
	actionEvents, err := eventRepo.FindActionEventsInRange(ctx, startTime, endTime)
	if err != nil {
		return nil, err
	}
	beliefEvents, err := eventRepo.FindBeliefEventsInRange(ctx, startTime, endTime)
	if err != nil {
		return nil, err
	}

	addVisitor := func(epinetID, hourKey string, step analytics.EpinetStep, stepIndex int, contentID, fingerprintID string) {
		bin := bins[epinetID+":"+hourKey]
		nodeID := s.tracking.StepNodeID(step, contentID)
		stepData, exists := bin.Steps[nodeID]
		if !exists {
			stepData = &analytics.HourlyEpinetStepData{
				Visitors:  make(map[string]bool),
				Name:      s.tracking.StepNodeName(step, contentID, titles),
				StepIndex: stepIndex + 1,
			}
			bin.Steps[nodeID] = stepData
		}
		stepData.Visitors[fingerprintID] = true
	}

	for _, event := range actionEvents {
		hourKey := analytics.FormatHourKey(event.CreatedAt)
		if !inWindow[hourKey] {
			continue
		}
		for _, epinet := range epinets {
			for i, step := range epinet.Steps {
				if step.GateType != analytics.GateCommitmentAction && step.GateType != analytics.GateConversionAction {
					continue
				}
				if !containsValue(step.Values, event.Verb) {
					continue
				}
				if step.ObjectType != "" && step.ObjectType != event.ObjectType {
					continue
				}
				if len(step.ObjectIDs) > 0 && !containsValue(step.ObjectIDs, event.ObjectID) {
					continue
				}
				addVisitor(epinet.ID, hourKey, step, i, event.ObjectID, event.FingerprintID)
			}
		}
	}

	for _, event := range beliefEvents {
		hourKey := analytics.FormatHourKey(event.UpdatedAt)
		if !inWindow[hourKey] {
			continue
		}
		for _, epinet := range epinets {
			for i, step := range epinet.Steps {
				switch step.GateType {
				case analytics.GateBelief:
					if containsValue(step.Values, event.Verb) {
						addVisitor(epinet.ID, hourKey, step, i, event.BeliefID, event.FingerprintID)
					}
				case analytics.GateIdentifyAs:
					if event.Object != nil && containsValue(step.Values, *event.Object) {
						addVisitor(epinet.ID, hourKey, step, i, event.BeliefID, event.FingerprintID)
					}
				}
			}
		}
	}

	for _, bin := range bins {
		computeChronologicalTransitions(bin)
	}
	return bins, nil
}

// computeChronologicalTransitions derives per-visitor transitions inside one
// hour bin: a visitor touching several nodes produces a transition for every
// ordered pair, sorted by step index then node id for determinism.
func computeChronologicalTransitions(bin *analytics.HourlyEpinetData) {
	visitorNodes := make(map[string][]string)
	for nodeID, stepData := range bin.Steps {
		for visitorID := range stepData.Visitors {
			visitorNodes[visitorID] = append(visitorNodes[visitorID], nodeID)
		}
	}

	for visitorID, nodes := range visitorNodes {
		if len(nodes) < 2 {
			continue
		}

		sort.Slice(nodes, func(i, j int) bool {
			a, b := bin.Steps[nodes[i]], bin.Steps[nodes[j]]
			if a.StepIndex != b.StepIndex {
				return a.StepIndex < b.StepIndex
			}
			return nodes[i] < nodes[j]
		})

		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				fromNodeID, toNodeID := nodes[i], nodes[j]
				if fromNodeID == toNodeID {
					continue
				}
				if bin.Steps[fromNodeID].StepIndex > bin.Steps[toNodeID].StepIndex {
					continue
				}

				toNodes, exists := bin.Transitions[fromNodeID]
				if !exists {
					toNodes = make(map[string]*analytics.HourlyEpinetTransitionData)
					bin.Transitions[fromNodeID] = toNodes
				}
				transition, exists := toNodes[toNodeID]
				if !exists {
					transition = &analytics.HourlyEpinetTransitionData{Visitors: make(map[string]bool)}
					toNodes[toNodeID] = transition
				}
				transition.Visitors[visitorID] = true
			}
		}
	}
}
