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

func newOrchestrator(t *testing.T) *services.AnalyticsService {
	t.Helper()
	logger := newTestLogger(t)
	tracking := services.NewEpinetTrackingService(logger)
	hourly := services.NewHourlyAnalyticsService(logger, newTestTracker(), tracking)
	dashboard := services.NewDashboardAnalyticsService(logger, newTestTracker())
	leads := services.NewLeadAnalyticsService(logger, newTestTracker(), hourly)
	return services.NewAnalyticsService(logger, newTestTracker(), hourly, dashboard, leads)
}

func TestGetAllAnalyticsCompleteWhenCurrent(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{leads: 4}, &fakeContentRepo{}, &fakeLeadRepo{})
	store := tenantCtx.CacheManager.Analytics()
	store.UpdateLastFullHour("t1", analytics.CurrentHourKey())

	result, err := newOrchestrator(t).GetAllAnalytics(context.Background(), tenantCtx, "weekly")
	require.NoError(t, err)

	assert.Equal(t, services.StatusComplete, result.Status)
	require.NotNil(t, result.Dashboard)
	require.NotNil(t, result.Leads)
}

func TestGetAllAnalyticsLoadingOnEmptyCache(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{leads: 2}, &fakeContentRepo{}, &fakeLeadRepo{})

	result, err := newOrchestrator(t).GetAllAnalytics(context.Background(), tenantCtx, "weekly")
	require.NoError(t, err)

	assert.Equal(t, services.StatusLoading, result.Status)
	require.NotNil(t, result.Dashboard)
	require.NotNil(t, result.Leads)
	assert.Zero(t, result.Leads.TotalVisits)
	assert.Empty(t, result.Dashboard.HotContent)

	// The background refresh fills the window and moves the watermark.
	store := tenantCtx.CacheManager.Analytics()
	require.Eventually(t, func() bool {
		return store.GetLastFullHour("t1") == analytics.CurrentHourKey()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetAllAnalyticsRefreshingServesStaleCache(t *testing.T) {
	tenantCtx := newTestTenant(t, &fakeEventRepo{leads: 1}, &fakeContentRepo{}, &fakeLeadRepo{})
	store := tenantCtx.CacheManager.Analytics()

	currentHour := analytics.CurrentHourKey()
	previousHour, err := analytics.PreviousHourKey(currentHour)
	require.NoError(t, err)

	siteBin := store.GetOrCreateSiteBin("t1", previousHour)
	siteBin.TotalVisits = 3
	siteBin.AnonymousVisitors["fp-1"] = true
	store.UpdateLastFullHour("t1", previousHour)

	result, err := newOrchestrator(t).GetAllAnalytics(context.Background(), tenantCtx, "weekly")
	require.NoError(t, err)

	assert.Equal(t, services.StatusRefreshing, result.Status)
	require.NotNil(t, result.Dashboard)
	require.NotNil(t, result.Leads)
	assert.Equal(t, 3, result.Leads.TotalVisits, "stale bins are still served while refreshing")

	require.Eventually(t, func() bool {
		return store.GetLastFullHour("t1") == currentHour
	}, 2*time.Second, 10*time.Millisecond)
}
