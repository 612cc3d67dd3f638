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

func newProcessingService(t *testing.T) *services.EventProcessingService {
	t.Helper()
	logger := newTestLogger(t)
	return services.NewEventProcessingService(logger, services.NewEpinetTrackingService(logger))
}

func TestProcessEventsUpdatesCurrentHourBins(t *testing.T) {
	eventsRepo := &fakeEventRepo{}
	tenantCtx := newTestTenant(t, eventsRepo, &fakeContentRepo{}, &fakeLeadRepo{})

	payload := &events.Payload{
		Visit: events.Visit{VisitID: "visit-1", FingerprintID: "fp-1", HasLead: true},
		Events: []events.Event{
			{ID: "sf-1", Type: analytics.ObjectTypeStoryFragment, Verb: "PAGEVIEWED"},
			{ID: "pane-1", Type: analytics.ObjectTypePane, Verb: "CLICKED"},
		},
	}

	newProcessingService(t).ProcessEvents(context.Background(), tenantCtx, payload)

	store := tenantCtx.CacheManager.Analytics()
	currentHour := analytics.CurrentHourKey()

	siteBins := store.GetSiteBinRange("t1", []string{currentHour})
	siteBin, exists := siteBins[currentHour]
	require.True(t, exists)
	assert.Equal(t, 1, siteBin.TotalVisits)
	assert.True(t, siteBin.KnownVisitors["fp-1"])
	assert.Empty(t, siteBin.AnonymousVisitors)
	assert.Equal(t, 1, siteBin.EventCounts["PAGEVIEWED"])
	assert.Equal(t, 1, siteBin.EventCounts["CLICKED"])

	contentBins := store.GetContentBinRange("t1", "sf-1", []string{currentHour})
	contentBin, exists := contentBins[currentHour]
	require.True(t, exists)
	assert.Equal(t, 1, contentBin.Actions)
	assert.True(t, contentBin.UniqueVisitors["fp-1"])
	assert.True(t, contentBin.KnownVisitors["fp-1"])

	require.Len(t, eventsRepo.stored, 2)
	assert.Equal(t, "sf-1", eventsRepo.stored[0].ObjectID)
	assert.Equal(t, "visit-1", eventsRepo.stored[0].VisitID)
	assert.Equal(t, "fp-1", eventsRepo.stored[0].FingerprintID)
}

func TestProcessEventsBeliefSkipsSiteCountsAndPersistence(t *testing.T) {
	eventsRepo := &fakeEventRepo{}
	tenantCtx := newTestTenant(t, eventsRepo, &fakeContentRepo{}, &fakeLeadRepo{})

	payload := &events.Payload{
		Visit: events.Visit{VisitID: "visit-1", FingerprintID: "fp-2"},
		Events: []events.Event{
			{ID: "belief-1", Type: "Belief", Verb: "BELIEVES_YES"},
		},
	}

	newProcessingService(t).ProcessEvents(context.Background(), tenantCtx, payload)

	store := tenantCtx.CacheManager.Analytics()
	currentHour := analytics.CurrentHourKey()

	siteBins := store.GetSiteBinRange("t1", []string{currentHour})
	siteBin, exists := siteBins[currentHour]
	require.True(t, exists)
	// Belief events register the visit but are not counted as site activity.
	assert.Equal(t, 1, siteBin.TotalVisits)
	assert.True(t, siteBin.AnonymousVisitors["fp-2"])
	assert.Empty(t, siteBin.EventCounts)

	assert.Empty(t, eventsRepo.stored, "belief events are never written to the actions table")
}

func TestProcessEventsIgnoresEventsWithoutID(t *testing.T) {
	eventsRepo := &fakeEventRepo{}
	tenantCtx := newTestTenant(t, eventsRepo, &fakeContentRepo{}, &fakeLeadRepo{})

	payload := &events.Payload{
		Visit: events.Visit{VisitID: "visit-1", FingerprintID: "fp-3"},
		Events: []events.Event{
			{ID: "", Type: analytics.ObjectTypeStoryFragment, Verb: "PAGEVIEWED"},
		},
	}

	newProcessingService(t).ProcessEvents(context.Background(), tenantCtx, payload)

	store := tenantCtx.CacheManager.Analytics()
	siteBins := store.GetSiteBinRange("t1", []string{analytics.CurrentHourKey()})
	siteBin := siteBins[analytics.CurrentHourKey()]
	require.NotNil(t, siteBin)
	assert.Empty(t, siteBin.EventCounts)
	assert.Empty(t, eventsRepo.stored)
}

func TestCreateLeadAssignsIDAndBumpsCounter(t *testing.T) {
	leadsRepo := &fakeLeadRepo{}
	tenantCtx := newTestTenant(t, &fakeEventRepo{}, &fakeContentRepo{}, leadsRepo)

	lead := &analytics.Lead{FirstName: "Ada", Email: "ada@example.com"}
	require.NoError(t, newProcessingService(t).CreateLead(context.Background(), tenantCtx, lead))

	require.Len(t, leadsRepo.created, 1)
	assert.Len(t, lead.ID, 26, "lead ids are ULIDs")
	assert.False(t, lead.CreatedAt.IsZero())
	// No AES key configured, so the email is stored as submitted.
	assert.Equal(t, "ada@example.com", leadsRepo.created[0].Email)

	totalLeads, _ := tenantCtx.CacheManager.Analytics().GetLeadScalars("t1")
	assert.Equal(t, 1, totalLeads)
}
