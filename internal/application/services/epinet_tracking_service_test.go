package services_test

import (
	"context"
	"testing"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/application/services"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEventToStep(t *testing.T) {
	svc := services.NewEpinetTrackingService(newTestLogger(t))

	pageview := events.Event{ID: "sf-1", Type: analytics.ObjectTypeStoryFragment, Verb: "PAGEVIEWED"}
	belief := events.Event{ID: "belief-1", Type: "Belief", Verb: "BELIEVES_YES"}
	identify := events.Event{ID: "belief-1", Type: "Belief", Verb: "IDENTIFY_AS", Object: "developer"}

	tests := []struct {
		name  string
		event events.Event
		step  analytics.EpinetStep
		want  bool
	}{
		{
			name:  "belief gate matches verb",
			event: belief,
			step:  analytics.EpinetStep{GateType: analytics.GateBelief, Values: []string{"BELIEVES_YES"}},
			want:  true,
		},
		{
			name:  "belief gate rejects other verbs",
			event: belief,
			step:  analytics.EpinetStep{GateType: analytics.GateBelief, Values: []string{"BELIEVES_NO"}},
			want:  false,
		},
		{
			name:  "identifyAs gate matches object",
			event: identify,
			step:  analytics.EpinetStep{GateType: analytics.GateIdentifyAs, Values: []string{"developer"}},
			want:  true,
		},
		{
			name:  "identifyAs gate requires an object",
			event: events.Event{ID: "belief-1", Type: "Belief", Verb: "IDENTIFY_AS"},
			step:  analytics.EpinetStep{GateType: analytics.GateIdentifyAs, Values: []string{"developer"}},
			want:  false,
		},
		{
			name:  "action gate matches verb",
			event: pageview,
			step:  analytics.EpinetStep{GateType: analytics.GateCommitmentAction, Values: []string{"PAGEVIEWED"}},
			want:  true,
		},
		{
			name:  "action gate filters on object type",
			event: pageview,
			step:  analytics.EpinetStep{GateType: analytics.GateCommitmentAction, Values: []string{"PAGEVIEWED"}, ObjectType: analytics.ObjectTypePane},
			want:  false,
		},
		{
			name:  "action gate with objectIds restricts content",
			event: pageview,
			step:  analytics.EpinetStep{GateType: analytics.GateConversionAction, Values: []string{"PAGEVIEWED"}, ObjectIDs: []string{"sf-2"}},
			want:  false,
		},
		{
			name:  "action gate with matching objectId",
			event: pageview,
			step:  analytics.EpinetStep{GateType: analytics.GateConversionAction, Values: []string{"PAGEVIEWED"}, ObjectIDs: []string{"sf-1", "sf-2"}},
			want:  true,
		},
		{
			name:  "action gate with objectType rejects belief events",
			event: belief,
			step:  analytics.EpinetStep{GateType: analytics.GateCommitmentAction, Values: []string{"BELIEVES_YES"}, ObjectType: analytics.ObjectTypeStoryFragment},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.MatchEventToStep(tt.event, tt.step))
		})
	}
}

func TestNodeIDDerivation(t *testing.T) {
	svc := services.NewEpinetTrackingService(newTestLogger(t))

	actionStep := analytics.EpinetStep{
		GateType:   analytics.GateCommitmentAction,
		Values:     []string{"PAGEVIEWED"},
		ObjectType: analytics.ObjectTypeStoryFragment,
	}
	assert.Equal(t, "commitmentAction-StoryFragment-PAGEVIEWED-sf-1", svc.StepNodeID(actionStep, "sf-1"))

	beliefStep := analytics.EpinetStep{GateType: analytics.GateBelief, Values: []string{"BELIEVES_YES"}}
	assert.Equal(t, "belief-BELIEVES_YES-belief-1", svc.StepNodeID(beliefStep, "belief-1"))

	event := events.Event{ID: "pane-1", Type: analytics.ObjectTypePane, Verb: "CLICKED"}
	assert.Equal(t, "commitmentAction-Pane-CLICKED-pane-1", svc.EventNodeID(event))

	identify := events.Event{ID: "belief-1", Type: "Belief", Verb: "IDENTIFY_AS", Object: "developer"}
	assert.Equal(t, "identifyAs-developer-belief-1", svc.EventNodeID(identify))
}

func TestNodeNames(t *testing.T) {
	svc := services.NewEpinetTrackingService(newTestLogger(t))
	titles := map[string]string{"sf-1": "Home"}

	actionStep := analytics.EpinetStep{
		GateType: analytics.GateCommitmentAction,
		Values:   []string{"PAGEVIEWED"},
	}
	assert.Equal(t, "PAGEVIEWED: Home", svc.StepNodeName(actionStep, "sf-1", titles))
	assert.Equal(t, "PAGEVIEWED: Unknown Content", svc.StepNodeName(actionStep, "sf-404", titles))

	beliefStep := analytics.EpinetStep{GateType: analytics.GateBelief, Title: "Trusts us"}
	assert.Equal(t, "Believes: Trusts us", svc.StepNodeName(beliefStep, "belief-1", titles))

	identifyStep := analytics.EpinetStep{GateType: analytics.GateIdentifyAs, Values: []string{"developer"}}
	assert.Equal(t, "Identifies as: developer", svc.StepNodeName(identifyStep, "belief-1", titles))
}

func TestFindUserPreviousNodeTwoHourWindow(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, &fakeContentRepo{}, &fakeLeadRepo{})
	svc := services.NewEpinetTrackingService(newTestLogger(t))
	store := tenantCtx.CacheManager.Analytics()

	currentHour := analytics.CurrentHourKey()
	previousHour, err := analytics.PreviousHourKey(currentHour)
	require.NoError(t, err)
	staleHour, err := analytics.PreviousHourKey(previousHour)
	require.NoError(t, err)

	record := func(hourKey, nodeID, fingerprintID string) {
		bin := store.GetOrCreateEpinetBin("t1", "ep-1", hourKey)
		bin.Steps[nodeID] = &analytics.HourlyEpinetStepData{
			Visitors: map[string]bool{fingerprintID: true},
			Name:     nodeID,
		}
	}

	record(staleHour, "node-old", "fp-stale")
	record(previousHour, "node-prev", "fp-recent")
	record(currentHour, "node-now", "fp-recent")

	// Activity older than the previous hour is out of scope.
	assert.Empty(t, svc.FindUserPreviousNode(tenantCtx, "ep-1", "fp-stale"))
	// The current hour wins when the visitor appears in both.
	assert.Equal(t, "node-now", svc.FindUserPreviousNode(tenantCtx, "ep-1", "fp-recent"))
	assert.Empty(t, svc.FindUserPreviousNode(tenantCtx, "ep-1", "fp-unknown"))
}

func TestUpdateEpinetHourlyDataRecordsTransitions(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, &fakeContentRepo{}, &fakeLeadRepo{})
	svc := services.NewEpinetTrackingService(newTestLogger(t))

	svc.UpdateEpinetHourlyData(tenantCtx, "fp-1", "ep-1", "node-a", "Step A", "")
	svc.UpdateEpinetHourlyData(tenantCtx, "fp-1", "ep-1", "node-b", "Step B", "node-a")
	// Self-transitions are dropped.
	svc.UpdateEpinetHourlyData(tenantCtx, "fp-1", "ep-1", "node-b", "Step B", "node-b")

	store := tenantCtx.CacheManager.Analytics()
	bin, exists := store.GetEpinetBin("t1", "ep-1", analytics.CurrentHourKey())
	require.True(t, exists)

	require.Contains(t, bin.Steps, "node-a")
	require.Contains(t, bin.Steps, "node-b")
	assert.True(t, bin.Steps["node-a"].Visitors["fp-1"])

	require.Contains(t, bin.Transitions, "node-a")
	assert.True(t, bin.Transitions["node-a"]["node-b"].Visitors["fp-1"])
	assert.NotContains(t, bin.Transitions, "node-b")
}

func TestProcessEpinetEventRecordsMatchingSteps(t *testing.T) {
	content := &fakeContentRepo{
		epinets: []*analytics.EpinetConfig{{
			ID:    "ep-1",
			Title: "Funnel",
			Steps: []analytics.EpinetStep{
				{GateType: analytics.GateCommitmentAction, Title: "Read", Values: []string{"PAGEVIEWED"}, ObjectType: analytics.ObjectTypeStoryFragment},
			},
		}},
		titles: map[string]string{"sf-1": "Home"},
	}
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, content, &fakeLeadRepo{})
	svc := services.NewEpinetTrackingService(newTestLogger(t))

	event := events.Event{ID: "sf-1", Type: analytics.ObjectTypeStoryFragment, Verb: "PAGEVIEWED"}
	svc.ProcessEpinetEvent(context.Background(), tenantCtx, event, "fp-1")

	store := tenantCtx.CacheManager.Analytics()
	bin, exists := store.GetEpinetBin("t1", "ep-1", analytics.CurrentHourKey())
	require.True(t, exists)

	nodeID := "commitmentAction-StoryFragment-PAGEVIEWED-sf-1"
	require.Contains(t, bin.Steps, nodeID)
	assert.Equal(t, "PAGEVIEWED: Home", bin.Steps[nodeID].Name)
	assert.True(t, bin.Steps[nodeID].Visitors["fp-1"])
}

func TestAddObjectToEpinetStepIsIdempotent(t *testing.T) {
	content := &fakeContentRepo{
		epinets: []*analytics.EpinetConfig{{
			ID: "ep-1",
			Steps: []analytics.EpinetStep{
				{GateType: analytics.GateCommitmentAction, Title: "Read More", Values: []string{"PAGEVIEWED"}, ObjectIDs: []string{"sf-1"}},
			},
		}},
	}
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, content, &fakeLeadRepo{})
	svc := services.NewEpinetTrackingService(newTestLogger(t))

	stepID := "commitmentAction-Read_More-0"

	require.NoError(t, svc.AddObjectToEpinetStep(context.Background(), tenantCtx, "ep-1", stepID, "sf-2"))
	require.Contains(t, content.savedSteps, "ep-1")
	assert.Equal(t, []string{"sf-1", "sf-2"}, content.savedSteps["ep-1"][0].ObjectIDs)

	// Already present: no second save.
	content.savedSteps = nil
	require.NoError(t, svc.AddObjectToEpinetStep(context.Background(), tenantCtx, "ep-1", stepID, "sf-2"))
	assert.Empty(t, content.savedSteps)
}
