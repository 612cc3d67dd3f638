package services_test

import (
	"fmt"
	"testing"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/application/services"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEpinetService(t *testing.T) *services.EpinetAnalyticsService {
	t.Helper()
	return services.NewEpinetAnalyticsService(newTestLogger(t), newTestTracker())
}

func addStep(bin *analytics.HourlyEpinetData, nodeID, name string, visitors ...string) {
	stepData, exists := bin.Steps[nodeID]
	if !exists {
		stepData = &analytics.HourlyEpinetStepData{Visitors: make(map[string]bool), Name: name}
		bin.Steps[nodeID] = stepData
	}
	for _, v := range visitors {
		stepData.Visitors[v] = true
	}
}

func addTransition(bin *analytics.HourlyEpinetData, from, to string, visitors ...string) {
	toNodes, exists := bin.Transitions[from]
	if !exists {
		toNodes = make(map[string]*analytics.HourlyEpinetTransitionData)
		bin.Transitions[from] = toNodes
	}
	transition, exists := toNodes[to]
	if !exists {
		transition = &analytics.HourlyEpinetTransitionData{Visitors: make(map[string]bool)}
		toNodes[to] = transition
	}
	for _, v := range visitors {
		transition.Visitors[v] = true
	}
}

func TestComputeEpinetSankeyNilWithoutData(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, &fakeContentRepo{}, &fakeLeadRepo{})

	diagram, err := newEpinetService(t).ComputeEpinetSankey(tenantCtx, "ep-missing", 168, nil)
	require.NoError(t, err)
	assert.Nil(t, diagram, "an epinet with no bins yields no diagram, not an empty one")
}

func TestComputeEpinetSankeyDeduplicatesVisitorsAcrossHours(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, &fakeContentRepo{}, &fakeLeadRepo{})
	store := tenantCtx.CacheManager.Analytics()

	currentHour := analytics.CurrentHourKey()
	previousHour, err := analytics.PreviousHourKey(currentHour)
	require.NoError(t, err)

	for _, hourKey := range []string{previousHour, currentHour} {
		bin := store.GetOrCreateEpinetBin("t1", "ep-1", hourKey)
		addStep(bin, "node-a", "Step A", "v1", "v2")
		addStep(bin, "node-b", "Step B", "v1")
		addTransition(bin, "node-a", "node-b", "v1")
	}

	diagram, err := newEpinetService(t).ComputeEpinetSankey(tenantCtx, "ep-1", 24, nil)
	require.NoError(t, err)
	require.NotNil(t, diagram)

	require.Len(t, diagram.Nodes, 2)
	assert.Equal(t, "node-a", diagram.Nodes[0].ID, "node-a has more visitors and ranks first")
	assert.Equal(t, "Step A", diagram.Nodes[0].Name)

	require.Len(t, diagram.Links, 1)
	// Same visitor in both hours counts once.
	assert.Equal(t, 1, diagram.Links[0].Value)
	assert.Equal(t, 0, diagram.Links[0].Source)
	assert.Equal(t, 1, diagram.Links[0].Target)
}

func TestComputeEpinetSankeyCapsNodesAndDropsPrunedLinks(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, &fakeContentRepo{}, &fakeLeadRepo{})
	store := tenantCtx.CacheManager.Analytics()

	bin := store.GetOrCreateEpinetBin("t1", "ep-1", analytics.CurrentHourKey())

	// node-00 has 1 visitor, node-24 has 25; only the 20 busiest survive.
	total := config.SankeyMaxNodes + 5
	for i := 0; i < total; i++ {
		nodeID := fmt.Sprintf("node-%02d", i)
		visitors := make([]string, i+1)
		for v := 0; v <= i; v++ {
			visitors[v] = fmt.Sprintf("fp-%02d-%02d", i, v)
		}
		addStep(bin, nodeID, nodeID, visitors...)
	}
	addTransition(bin, "node-24", "node-23", "fp-link")
	addTransition(bin, "node-24", "node-00", "fp-link")

	diagram, err := newEpinetService(t).ComputeEpinetSankey(tenantCtx, "ep-1", 24, nil)
	require.NoError(t, err)
	require.NotNil(t, diagram)

	require.Len(t, diagram.Nodes, config.SankeyMaxNodes)

	kept := make(map[string]bool, len(diagram.Nodes))
	for _, node := range diagram.Nodes {
		kept[node.ID] = true
	}
	assert.True(t, kept["node-24"])
	assert.False(t, kept["node-00"], "the quietest nodes are pruned")
	assert.False(t, kept["node-04"])
	assert.True(t, kept["node-05"])

	// The link into the pruned node-00 disappears with it.
	require.Len(t, diagram.Links, 1)
	assert.Equal(t, "node-23", diagram.Nodes[diagram.Links[0].Target].ID)
}

func TestComputeEpinetSankeyKnownVisitorFilter(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, &fakeContentRepo{}, &fakeLeadRepo{})
	store := tenantCtx.CacheManager.Analytics()
	currentHour := analytics.CurrentHourKey()

	siteBin := store.GetOrCreateSiteBin("t1", currentHour)
	siteBin.KnownVisitors["fp-known"] = true
	siteBin.AnonymousVisitors["fp-anon"] = true

	bin := store.GetOrCreateEpinetBin("t1", "ep-1", currentHour)
	addStep(bin, "node-a", "Step A", "fp-known", "fp-anon")

	svc := newEpinetService(t)

	known, err := svc.ComputeEpinetSankey(tenantCtx, "ep-1", 24, &services.SankeyFilters{VisitorType: "known"})
	require.NoError(t, err)
	require.NotNil(t, known)
	require.Len(t, known.Nodes, 1)

	counts := svc.GetFilteredVisitorCounts(tenantCtx, "ep-1", &services.SankeyFilters{VisitorType: "known"})
	require.Len(t, counts, 1)
	assert.Equal(t, "fp-known", counts[0].ID)
	assert.True(t, counts[0].IsKnown)

	anonCounts := svc.GetFilteredVisitorCounts(tenantCtx, "ep-1", &services.SankeyFilters{VisitorType: "anonymous"})
	require.Len(t, anonCounts, 1)
	assert.Equal(t, "fp-anon", anonCounts[0].ID)
}

func TestGetEpinetCustomMetricsSelectedUser(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, &fakeContentRepo{}, &fakeLeadRepo{})
	store := tenantCtx.CacheManager.Analytics()

	bin := store.GetOrCreateEpinetBin("t1", "ep-1", analytics.CurrentHourKey())
	addStep(bin, "node-a", "Step A", "v1", "v2")
	addStep(bin, "node-b", "Step B", "v2")

	selected := "v2"
	metrics, err := newEpinetService(t).GetEpinetCustomMetrics(tenantCtx, "ep-1", &services.SankeyFilters{SelectedUserID: &selected})
	require.NoError(t, err)
	require.NotNil(t, metrics.Epinet)

	// v2 touched both nodes, so it sorts ahead of v1.
	require.Len(t, metrics.AvailableVisitorIDs, 2)
	assert.Equal(t, "v2", metrics.AvailableVisitorIDs[0])

	counts := newEpinetService(t).GetFilteredVisitorCounts(tenantCtx, "ep-1", nil)
	require.NotEmpty(t, counts)
	assert.Equal(t, services.UserCount{ID: "v2", Count: 2, IsKnown: false}, counts[0])
}
