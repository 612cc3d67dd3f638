package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/application/services"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHourlyService(t *testing.T) *services.HourlyAnalyticsService {
	t.Helper()
	logger := newTestLogger(t)
	tracking := services.NewEpinetTrackingService(logger)
	return services.NewHourlyAnalyticsService(logger, newTestTracker(), tracking)
}

func TestLoadHourlyAnalyticsPreInitializesEmptyHours(t *testing.T) {
	events := &fakeEventRepo{leads: 3, lastActivity: "2025-03-07 14:00:00"}
	tenantCtx := newTestTenant(t, events, &fakeContentRepo{}, &fakeLeadRepo{})

	svc := newHourlyService(t)
	require.NoError(t, svc.LoadHourlyAnalytics(context.Background(), tenantCtx, 3))

	store := tenantCtx.CacheManager.Analytics()
	hourKeys := analytics.HourKeysForRange(3)
	bins := store.GetSiteBinRange("t1", hourKeys)

	require.Len(t, bins, 3, "zero-activity hours must be present, not absent")
	for _, hourKey := range hourKeys {
		bin, exists := bins[hourKey]
		require.True(t, exists, "missing bin for %s", hourKey)
		assert.Zero(t, bin.TotalVisits)
		assert.Empty(t, bin.KnownVisitors)
	}

	assert.Equal(t, analytics.CurrentHourKey(), store.GetLastFullHour("t1"))
	totalLeads, lastActivity := store.GetLeadScalars("t1")
	assert.Equal(t, 3, totalLeads)
	assert.Equal(t, "2025-03-07 14:00:00", lastActivity)
}

func TestLoadHourlyAnalyticsClassifiesContentVisitors(t *testing.T) {
	currentHour := analytics.CurrentHourKey()
	events := &fakeEventRepo{
		siteRows: []*analytics.SiteHourlyRow{{
			HourKey:                 currentHour,
			TotalVisits:             4,
			AnonymousFingerprintIDs: []string{"anon1"},
			KnownFingerprintIDs:     []string{"known1"},
			EventCounts:             map[string]int{"PAGEVIEWED": 4},
		}},
		contentRows: []*analytics.ContentHourlyRow{{
			HourKey:        currentHour,
			ObjectID:       "sf-1",
			ObjectType:     "StoryFragment",
			FingerprintIDs: []string{"known1", "anon1", "offsite"},
			TotalActions:   6,
			EventCounts:    map[string]int{"PAGEVIEWED": 5, "CLICKED": 1},
		}},
	}
	tenantCtx := newTestTenant(t, events, &fakeContentRepo{slugMap: map[string]string{"home": "sf-1"}}, &fakeLeadRepo{})

	svc := newHourlyService(t)
	require.NoError(t, svc.LoadHourlyAnalytics(context.Background(), tenantCtx, 3))

	store := tenantCtx.CacheManager.Analytics()
	bins := store.GetContentBinRange("t1", "sf-1", []string{currentHour})
	bin, exists := bins[currentHour]
	require.True(t, exists)

	assert.Equal(t, 6, bin.Actions)
	assert.Len(t, bin.UniqueVisitors, 3)
	// Content-level classification mirrors the site-level sets for the hour;
	// a visitor unknown to both stays unique-only.
	assert.Equal(t, map[string]bool{"known1": true}, bin.KnownVisitors)
	assert.Equal(t, map[string]bool{"anon1": true}, bin.AnonymousVisitors)

	assert.Equal(t, map[string]string{"home": "sf-1"}, store.GetSlugMap("t1"))
}

func TestLoadHourlyAnalyticsAbortsWithoutMutatingStore(t *testing.T) {
	events := &fakeEventRepo{failSiteRows: true}
	tenantCtx := newTestTenant(t, events, &fakeContentRepo{}, &fakeLeadRepo{})

	svc := newHourlyService(t)
	err := svc.LoadHourlyAnalytics(context.Background(), tenantCtx, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, errRepoFailure)

	store := tenantCtx.CacheManager.Analytics()
	assert.Empty(t, store.GetLastFullHour("t1"), "failed load must not move the watermark")
	assert.True(t, store.IsTenantCacheEmpty("t1"), "failed load must leave the store untouched")
}

func TestLoadHourlyAnalyticsReplaysEpinetEvents(t *testing.T) {
	currentHour := analytics.CurrentHourKey()
	now, err := analytics.ParseHourKey(currentHour)
	require.NoError(t, err)

	epinet := &analytics.EpinetConfig{
		ID:    "ep-1",
		Title: "Onboarding",
		Steps: []analytics.EpinetStep{
			{GateType: "commitmentAction", Title: "Read", Values: []string{"PAGEVIEWED"}, ObjectType: "StoryFragment"},
			{GateType: "commitmentAction", Title: "Engage", Values: []string{"CLICKED"}, ObjectType: "Pane"},
		},
	}
	events := &fakeEventRepo{
		actionEvents: []*analytics.ActionEvent{
			{ObjectID: "sf-1", ObjectType: "StoryFragment", Verb: "PAGEVIEWED", FingerprintID: "v1", CreatedAt: now},
			{ObjectID: "pane-1", ObjectType: "Pane", Verb: "CLICKED", FingerprintID: "v1", CreatedAt: now.Add(10 * time.Minute)},
		},
	}
	content := &fakeContentRepo{
		epinets: []*analytics.EpinetConfig{epinet},
		titles:  map[string]string{"sf-1": "Home", "pane-1": "Hero"},
	}
	tenantCtx := newTestTenant(t, events, content, &fakeLeadRepo{})

	svc := newHourlyService(t)
	require.NoError(t, svc.LoadHourlyAnalytics(context.Background(), tenantCtx, 3))

	store := tenantCtx.CacheManager.Analytics()
	bin, exists := store.GetEpinetBin("t1", "ep-1", currentHour)
	require.True(t, exists)

	readNode := "commitmentAction-StoryFragment-PAGEVIEWED-sf-1"
	engageNode := "commitmentAction-Pane-CLICKED-pane-1"

	require.Contains(t, bin.Steps, readNode)
	require.Contains(t, bin.Steps, engageNode)
	assert.Equal(t, "PAGEVIEWED: Home", bin.Steps[readNode].Name)
	assert.Equal(t, 1, bin.Steps[readNode].StepIndex)
	assert.Equal(t, 2, bin.Steps[engageNode].StepIndex)

	// A visitor on both steps within the hour yields one transition.
	require.Contains(t, bin.Transitions, readNode)
	require.Contains(t, bin.Transitions[readNode], engageNode)
	assert.True(t, bin.Transitions[readNode][engageNode].Visitors["v1"])
}

func TestRefreshHourlyAnalyticsNoOpWhenCurrent(t *testing.T) {
	// A loader call would fail loudly; the no-op path must never reach it.
	events := &fakeEventRepo{failCountLeads: true}
	tenantCtx := newTestTenant(t, events, &fakeContentRepo{}, &fakeLeadRepo{})

	store := tenantCtx.CacheManager.Analytics()
	store.UpdateLastFullHour("t1", analytics.CurrentHourKey())

	svc := newHourlyService(t)
	require.NoError(t, svc.RefreshHourlyAnalytics(context.Background(), tenantCtx))
}

func TestRefreshHourlyAnalyticsReloadsGap(t *testing.T) {
	events := &fakeEventRepo{leads: 1}
	tenantCtx := newTestTenant(t, events, &fakeContentRepo{}, &fakeLeadRepo{})

	currentHour := analytics.CurrentHourKey()
	previousHour, err := analytics.PreviousHourKey(currentHour)
	require.NoError(t, err)

	store := tenantCtx.CacheManager.Analytics()
	store.UpdateLastFullHour("t1", previousHour)

	svc := newHourlyService(t)
	require.NoError(t, svc.RefreshHourlyAnalytics(context.Background(), tenantCtx))

	assert.Equal(t, currentHour, store.GetLastFullHour("t1"), "refresh must advance the watermark")
}
