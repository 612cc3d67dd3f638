package analytics_test

import (
	"testing"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteBin(total int, anon, known []string) *analytics.HourlySiteData {
	bin := analytics.NewEmptyHourlySiteData()
	bin.TotalVisits = total
	for _, id := range anon {
		bin.AnonymousVisitors[id] = true
	}
	for _, id := range known {
		bin.KnownVisitors[id] = true
	}
	return bin
}

func TestAggregateSiteRangeDeduplicatesAcrossHours(t *testing.T) {
	bins := map[string]*analytics.HourlySiteData{
		"2025-03-01-10": siteBin(5, []string{"a", "b"}, []string{"c"}),
		"2025-03-01-09": siteBin(3, []string{"b"}, nil),
		"2025-03-01-08": analytics.NewEmptyHourlySiteData(),
	}
	hourKeys := []string{"2025-03-01-10", "2025-03-01-09", "2025-03-01-08"}

	summary := analytics.AggregateSiteRange(bins, hourKeys)

	assert.Equal(t, 8, summary.TotalVisits)
	assert.Len(t, summary.AnonymousVisitors, 2)
	assert.Len(t, summary.KnownVisitors, 1)
	assert.True(t, summary.AnonymousVisitors["a"])
	assert.True(t, summary.AnonymousVisitors["b"])
	assert.True(t, summary.KnownVisitors["c"])
}

func TestAggregateSiteRangeMissingHoursContributeNothing(t *testing.T) {
	bins := map[string]*analytics.HourlySiteData{
		"2025-03-01-10": siteBin(2, []string{"a"}, nil),
	}
	hourKeys := []string{"2025-03-01-10", "2025-03-01-09", "2025-03-01-08"}

	summary := analytics.AggregateSiteRange(bins, hourKeys)
	assert.Equal(t, 2, summary.TotalVisits)
	assert.Len(t, summary.AnonymousVisitors, 1)

	// Entirely missing range yields a zero value, not an error.
	empty := analytics.AggregateSiteRange(bins, []string{"2020-01-01-00"})
	assert.Zero(t, empty.TotalVisits)
	assert.Empty(t, empty.AnonymousVisitors)
	assert.Empty(t, empty.KnownVisitors)
	assert.Empty(t, empty.EventCounts)
}

func TestAggregateSiteRangeIsIdempotentAndNonMutating(t *testing.T) {
	bins := map[string]*analytics.HourlySiteData{
		"2025-03-01-10": siteBin(5, []string{"a", "b"}, []string{"c"}),
		"2025-03-01-09": siteBin(3, []string{"b"}, nil),
	}
	bins["2025-03-01-10"].EventCounts["CLICKED"] = 4
	bins["2025-03-01-09"].EventCounts["CLICKED"] = 1
	hourKeys := []string{"2025-03-01-10", "2025-03-01-09"}

	first := analytics.AggregateSiteRange(bins, hourKeys)
	second := analytics.AggregateSiteRange(bins, hourKeys)

	assert.Equal(t, first, second)
	assert.Equal(t, 5, first.EventCounts["CLICKED"])

	// Mutating the summary must not reach back into the source bins.
	first.AnonymousVisitors["z"] = true
	assert.False(t, bins["2025-03-01-10"].AnonymousVisitors["z"])
	assert.False(t, bins["2025-03-01-09"].AnonymousVisitors["z"])
}

func TestAggregateContentRange(t *testing.T) {
	makeBin := func(actions int, unique, known []string, clicks int) *analytics.HourlyContentData {
		bin := analytics.NewEmptyHourlyContentData()
		bin.Actions = actions
		for _, id := range unique {
			bin.UniqueVisitors[id] = true
		}
		for _, id := range known {
			bin.KnownVisitors[id] = true
		}
		if clicks > 0 {
			bin.EventCounts[analytics.VerbClicked] = clicks
		}
		return bin
	}

	bins := map[string]*analytics.HourlyContentData{
		"2025-03-01-10": makeBin(4, []string{"a", "b"}, []string{"a"}, 3),
		"2025-03-01-09": makeBin(1, []string{"a"}, []string{"a"}, 1),
	}

	summary := analytics.AggregateContentRange(bins, []string{"2025-03-01-10", "2025-03-01-09"})
	require.NotNil(t, summary)
	assert.Equal(t, 5, summary.Actions)
	assert.Len(t, summary.UniqueVisitors, 2)
	assert.Len(t, summary.KnownVisitors, 1)
	assert.Equal(t, 4, summary.EventCounts[analytics.VerbClicked])
}
