package services

import (
	"sort"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/tractstack-starter-sub006/pkg/config"
)

// SankeyFilters narrows a sankey computation to a visitor kind, a single
// visitor, or a custom hour-offset range.
type SankeyFilters struct {
	VisitorType    string  `json:"visitorType"` // "all", "known", "anonymous"
	SelectedUserID *string `json:"selectedUserId,omitempty"`
	StartHour      *int    `json:"startHour,omitempty"` // hours ago, inclusive
	EndHour        *int    `json:"endHour,omitempty"`
}

// UserCount pairs a visitor id with its event count in the filtered window.
type UserCount struct {
	ID      string `json:"id"`
	Count   int    `json:"count"`
	IsKnown bool   `json:"isKnown"`
}

// EpinetCustomMetrics is the response to a filtered sankey request.
type EpinetCustomMetrics struct {
	Epinet              *analytics.SankeyDiagram `json:"epinet"`
	AvailableVisitorIDs []string                 `json:"availableVisitorIds"`
}

// EpinetAnalyticsService turns epinet hour bins into sankey diagrams.
type EpinetAnalyticsService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

func NewEpinetAnalyticsService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *EpinetAnalyticsService {
	return &EpinetAnalyticsService{logger: logger, perfTracker: perfTracker}
}

// ComputeEpinetSankey builds the user-flow diagram for one epinet over an
// hour window. Returns nil when the tenant/epinet pair has no data at all,
// which is distinct from an empty-but-present graph.
func (s *EpinetAnalyticsService) ComputeEpinetSankey(tenantCtx *tenant.Context, epinetID string, hours int, filters *SankeyFilters) (*analytics.SankeyDiagram, error) {
	start := time.Now()
	marker := s.perfTracker.StartOperation("compute_epinet_sankey", tenantCtx.TenantID)
	defer marker.Complete()

	store := tenantCtx.CacheManager.Analytics()
	if !store.HasEpinetData(tenantCtx.TenantID, epinetID) {
		marker.SetSuccess(true)
		return nil, nil
	}

	hourKeys := s.resolveHourKeys(hours, filters)
	bins, _ := store.GetEpinetBinRange(tenantCtx.TenantID, epinetID, hourKeys)

	filterIDs := s.buildVisitorFilter(tenantCtx, bins, hourKeys, filters)

	// Union visitor sets per node and per transition across the window.
	nodeCounts := make(map[string]map[string]bool)
	nodeNames := make(map[string]string)
	nodeOrder := make([]string, 0)
	transitionCounts := make(map[string]map[string]map[string]bool)

	for _, hourKey := range hourKeys {
		bin, exists := bins[hourKey]
		if !exists {
			continue
		}

		for nodeID, stepData := range bin.Steps {
			if _, seen := nodeCounts[nodeID]; !seen {
				nodeCounts[nodeID] = make(map[string]bool)
				nodeNames[nodeID] = stepData.Name
				nodeOrder = append(nodeOrder, nodeID)
			}
			for visitorID := range stepData.Visitors {
				if filterIDs == nil || filterIDs[visitorID] {
					nodeCounts[nodeID][visitorID] = true
				}
			}
		}

		for fromNodeID, toNodes := range bin.Transitions {
			if _, seen := transitionCounts[fromNodeID]; !seen {
				transitionCounts[fromNodeID] = make(map[string]map[string]bool)
			}
			for toNodeID, transition := range toNodes {
				if _, seen := transitionCounts[fromNodeID][toNodeID]; !seen {
					transitionCounts[fromNodeID][toNodeID] = make(map[string]bool)
				}
				for visitorID := range transition.Visitors {
					if filterIDs == nil || filterIDs[visitorID] {
						transitionCounts[fromNodeID][toNodeID][visitorID] = true
					}
				}
			}
		}
	}

	// Rank by distinct visitors, keep the top N. The stable sort preserves
	// discovery order for ties.
	ranked := make([]string, len(nodeOrder))
	copy(ranked, nodeOrder)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(nodeCounts[ranked[i]]) > len(nodeCounts[ranked[j]])
	})
	if len(ranked) > config.SankeyMaxNodes {
		ranked = ranked[:config.SankeyMaxNodes]
	}

	nodes := make([]analytics.SankeyNode, len(ranked))
	nodeIndex := make(map[string]int, len(ranked))
	for i, nodeID := range ranked {
		nodes[i] = analytics.SankeyNode{Name: nodeNames[nodeID], ID: nodeID}
		nodeIndex[nodeID] = i
	}

	// Links with a pruned endpoint are dropped entirely, not redirected.
	links := make([]analytics.SankeyLink, 0)
	for fromNodeID, toNodes := range transitionCounts {
		sourceIndex, kept := nodeIndex[fromNodeID]
		if !kept {
			continue
		}
		for toNodeID, visitors := range toNodes {
			targetIndex, kept := nodeIndex[toNodeID]
			if !kept {
				continue
			}
			if len(visitors) >= 1 {
				links = append(links, analytics.SankeyLink{
					Source: sourceIndex,
					Target: targetIndex,
					Value:  len(visitors),
				})
			}
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})

	marker.SetSuccess(true)
	s.logger.Analytics().Info("Successfully computed epinet sankey",
		"tenantId", tenantCtx.TenantID, "epinetId", epinetID,
		"nodes", len(nodes), "links", len(links), "duration", time.Since(start))

	return &analytics.SankeyDiagram{
		ID:    epinetID,
		Title: "User Journey Flow",
		Nodes: nodes,
		Links: links,
	}, nil
}

// ComputeAllEpinetRanges builds the 24h / 168h / 672h diagrams for one
// epinet.
func (s *EpinetAnalyticsService) ComputeAllEpinetRanges(tenantCtx *tenant.Context, epinetID string) (*analytics.EpinetRangeSet, error) {
	daily, err := s.ComputeEpinetSankey(tenantCtx, epinetID, 24, nil)
	if err != nil {
		return nil, err
	}
	weekly, err := s.ComputeEpinetSankey(tenantCtx, epinetID, 168, nil)
	if err != nil {
		return nil, err
	}
	monthly, err := s.ComputeEpinetSankey(tenantCtx, epinetID, 672, nil)
	if err != nil {
		return nil, err
	}
	return &analytics.EpinetRangeSet{Daily: daily, Weekly: weekly, Monthly: monthly}, nil
}

// GetEpinetMetrics maps a named duration onto a sankey window.
func (s *EpinetAnalyticsService) GetEpinetMetrics(tenantCtx *tenant.Context, epinetID, duration string) (*analytics.SankeyDiagram, error) {
	return s.ComputeEpinetSankey(tenantCtx, epinetID, durationToHours(duration), nil)
}

// GetEpinetCustomMetrics computes a filtered sankey plus the visitor ids
// available in the filtered window.
func (s *EpinetAnalyticsService) GetEpinetCustomMetrics(tenantCtx *tenant.Context, epinetID string, filters *SankeyFilters) (*EpinetCustomMetrics, error) {
	visitorCounts := s.GetFilteredVisitorCounts(tenantCtx, epinetID, filters)
	visitorIDs := make([]string, len(visitorCounts))
	for i, vc := range visitorCounts {
		visitorIDs[i] = vc.ID
	}

	diagram, err := s.ComputeEpinetSankey(tenantCtx, epinetID, 168, filters)
	if err != nil {
		return nil, err
	}

	return &EpinetCustomMetrics{Epinet: diagram, AvailableVisitorIDs: visitorIDs}, nil
}

// GetFilteredVisitorCounts lists visitors active in the filtered window with
// their event counts, sorted by count descending then id.
func (s *EpinetAnalyticsService) GetFilteredVisitorCounts(tenantCtx *tenant.Context, epinetID string, filters *SankeyFilters) []UserCount {
	store := tenantCtx.CacheManager.Analytics()
	hourKeys := s.resolveHourKeys(168, filters)
	bins, _ := store.GetEpinetBinRange(tenantCtx.TenantID, epinetID, hourKeys)

	known := s.knownVisitors(tenantCtx, hourKeys)

	counts := make(map[string]int)
	for _, hourKey := range hourKeys {
		bin, exists := bins[hourKey]
		if !exists {
			continue
		}
		for _, stepData := range bin.Steps {
			for visitorID := range stepData.Visitors {
				counts[visitorID]++
			}
		}
	}

	visitorType := "all"
	if filters != nil && filters.VisitorType != "" {
		visitorType = filters.VisitorType
	}

	result := make([]UserCount, 0, len(counts))
	for visitorID, count := range counts {
		isKnown := known[visitorID]
		if visitorType == "known" && !isKnown {
			continue
		}
		if visitorType == "anonymous" && isKnown {
			continue
		}
		result = append(result, UserCount{ID: visitorID, Count: count, IsKnown: isKnown})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// buildVisitorFilter returns the set of visitor ids passing the filters, or
// nil when no filtering applies.
func (s *EpinetAnalyticsService) buildVisitorFilter(tenantCtx *tenant.Context, bins map[string]*analytics.HourlyEpinetData, hourKeys []string, filters *SankeyFilters) map[string]bool {
	if filters == nil {
		return nil
	}
	if filters.SelectedUserID != nil && *filters.SelectedUserID != "" {
		return map[string]bool{*filters.SelectedUserID: true}
	}
	if filters.VisitorType == "" || filters.VisitorType == "all" {
		return nil
	}

	known := s.knownVisitors(tenantCtx, hourKeys)
	wantKnown := filters.VisitorType == "known"

	filterIDs := make(map[string]bool)
	for _, hourKey := range hourKeys {
		bin, exists := bins[hourKey]
		if !exists {
			continue
		}
		for _, stepData := range bin.Steps {
			for visitorID := range stepData.Visitors {
				if known[visitorID] == wantKnown {
					filterIDs[visitorID] = true
				}
			}
		}
	}
	return filterIDs
}

// knownVisitors unions the site bins' known-visitor sets over the window.
func (s *EpinetAnalyticsService) knownVisitors(tenantCtx *tenant.Context, hourKeys []string) map[string]bool {
	siteBins := tenantCtx.CacheManager.Analytics().GetSiteBinRange(tenantCtx.TenantID, hourKeys)
	summary := analytics.AggregateSiteRange(siteBins, hourKeys)
	return summary.KnownVisitors
}

func (s *EpinetAnalyticsService) resolveHourKeys(hours int, filters *SankeyFilters) []string {
	if filters != nil && filters.StartHour != nil && filters.EndHour != nil {
		return analytics.HourKeysForOffsetRange(*filters.StartHour, *filters.EndHour)
	}
	return analytics.HourKeysForRange(hours)
}

func durationToHours(duration string) int {
	switch duration {
	case "daily":
		return 24
	case "monthly":
		return 672
	default:
		return 168
	}
}
