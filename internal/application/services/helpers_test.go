package services_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/tenant"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   make(map[logging.Channel]slog.Level),
	})
	require.NoError(t, err)
	return logger
}

func newTestTracker() *performance.Tracker {
	return performance.NewTracker(performance.DefaultTrackerConfig())
}

// newTestTenant builds a tenant context backed by a fresh in-memory cache and
// the given fake repositories.
func newTestTenant(t *testing.T, events *fakeEventRepo, content *fakeContentRepo, leads *fakeLeadRepo) *tenant.Context {
	t.Helper()
	logger := newTestLogger(t)
	cacheManager := manager.NewManager(logger)
	cacheManager.InitializeTenant("t1")

	return &tenant.Context{
		TenantID:          "t1",
		Config:            &tenant.Config{TenantID: "t1"},
		Status:            "active",
		CacheManager:      cacheManager,
		Logger:            logger,
		EventRepository:   events,
		ContentRepository: content,
		LeadRepository:    leads,
	}
}

var errRepoFailure = errors.New("query failed")

type fakeEventRepo struct {
	leads        int
	lastActivity string
	contentRows  []*analytics.ContentHourlyRow
	siteRows     []*analytics.SiteHourlyRow
	actionEvents []*analytics.ActionEvent
	beliefEvents []*analytics.BeliefEvent
	known        map[string]bool

	stored []*analytics.ActionEvent

	failCountLeads bool
	failSiteRows   bool
}

func (f *fakeEventRepo) StoreActionEvent(_ context.Context, event *analytics.ActionEvent) error {
	f.stored = append(f.stored, event)
	return nil
}

func (f *fakeEventRepo) CountLeads(context.Context) (int, error) {
	if f.failCountLeads {
		return 0, errRepoFailure
	}
	return f.leads, nil
}

func (f *fakeEventRepo) LastActivity(context.Context) (string, error) {
	return f.lastActivity, nil
}

func (f *fakeEventRepo) ContentHourlyRows(context.Context, time.Time, time.Time) ([]*analytics.ContentHourlyRow, error) {
	return f.contentRows, nil
}

func (f *fakeEventRepo) SiteHourlyRows(context.Context, time.Time, time.Time) ([]*analytics.SiteHourlyRow, error) {
	if f.failSiteRows {
		return nil, errRepoFailure
	}
	return f.siteRows, nil
}

func (f *fakeEventRepo) KnownFingerprintIDs(context.Context) (map[string]bool, error) {
	return f.known, nil
}

func (f *fakeEventRepo) FindActionEventsInRange(context.Context, time.Time, time.Time) ([]*analytics.ActionEvent, error) {
	return f.actionEvents, nil
}

func (f *fakeEventRepo) FindBeliefEventsInRange(context.Context, time.Time, time.Time) ([]*analytics.BeliefEvent, error) {
	return f.beliefEvents, nil
}

type fakeContentRepo struct {
	slugMap map[string]string
	titles  map[string]string
	epinets []*analytics.EpinetConfig

	savedSteps map[string][]analytics.EpinetStep
}

func (f *fakeContentRepo) StoryFragmentSlugMap(context.Context) (map[string]string, error) {
	if f.slugMap == nil {
		return map[string]string{}, nil
	}
	return f.slugMap, nil
}

func (f *fakeContentRepo) ContentTitleMap(context.Context) (map[string]string, error) {
	if f.titles == nil {
		return map[string]string{}, nil
	}
	return f.titles, nil
}

func (f *fakeContentRepo) ActiveEpinets(context.Context) ([]*analytics.EpinetConfig, error) {
	return f.epinets, nil
}

func (f *fakeContentRepo) SaveEpinetSteps(_ context.Context, epinetID string, steps []analytics.EpinetStep) error {
	if f.savedSteps == nil {
		f.savedSteps = make(map[string][]analytics.EpinetStep)
	}
	f.savedSteps[epinetID] = steps
	return nil
}

type fakeLeadRepo struct {
	created []*analytics.Lead
}

func (f *fakeLeadRepo) CreateLead(_ context.Context, lead *analytics.Lead) error {
	f.created = append(f.created, lead)
	return nil
}
