package analytics_test

import (
	"testing"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatHourKey(t *testing.T) {
	testCases := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "truncates to the hour",
			input:    time.Date(2025, 3, 7, 14, 59, 59, 0, time.UTC),
			expected: "2025-03-07-14",
		},
		{
			name:     "converts to UTC first",
			input:    time.Date(2025, 3, 7, 23, 30, 0, 0, time.FixedZone("plus2", 2*60*60)),
			expected: "2025-03-07-21",
		},
		{
			name:     "zero-pads single digit fields",
			input:    time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC),
			expected: "2025-01-02-03",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, analytics.FormatHourKey(tc.input))
		})
	}
}

func TestParseHourKey(t *testing.T) {
	parsed, err := analytics.ParseHourKey("2025-03-07-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 7, 14, 0, 0, 0, time.UTC), parsed)
}

func TestParseHourKeyRejectsMalformedKeys(t *testing.T) {
	testCases := []struct {
		name string
		key  string
	}{
		{name: "out of range fields", key: "2024-13-99-25"},
		{name: "missing hour segment", key: "2024-01-01"},
		{name: "non-numeric year", key: "yyyy-01-01-00"},
		{name: "month zero", key: "2024-00-15-10"},
		{name: "hour 24", key: "2024-06-15-24"},
		{name: "empty string", key: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := analytics.ParseHourKey(tc.key)
			require.Error(t, err)
			assert.ErrorIs(t, err, analytics.ErrMalformedHourKey)
		})
	}
}

func TestHourKeysForRange(t *testing.T) {
	keys := analytics.HourKeysForRange(672)
	require.Len(t, keys, 672)

	// Most-recent-first, contiguous, no duplicates.
	seen := make(map[string]bool, len(keys))
	for i, key := range keys {
		parsed, err := analytics.ParseHourKey(key)
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate hour key %s", key)
		seen[key] = true

		if i > 0 {
			previous, err := analytics.ParseHourKey(keys[i-1])
			require.NoError(t, err)
			assert.Equal(t, time.Hour, previous.Sub(parsed), "keys %d and %d not contiguous", i-1, i)
		}
	}
}

func TestHourKeysEndingAt(t *testing.T) {
	end := time.Date(2025, 3, 1, 2, 15, 0, 0, time.UTC)
	keys := analytics.HourKeysEndingAt(end, 4)
	assert.Equal(t, []string{"2025-03-01-02", "2025-03-01-01", "2025-03-01-00", "2025-02-28-23"}, keys)
}

func TestHoursBetween(t *testing.T) {
	hours, err := analytics.HoursBetween("2025-03-01-00", "2025-03-02-06")
	require.NoError(t, err)
	assert.Equal(t, 30, hours)

	// Symmetric.
	hours, err = analytics.HoursBetween("2025-03-02-06", "2025-03-01-00")
	require.NoError(t, err)
	assert.Equal(t, 30, hours)

	_, err = analytics.HoursBetween("2025-03-01-00", "garbage")
	assert.ErrorIs(t, err, analytics.ErrMalformedHourKey)
}

func TestPreviousHourKey(t *testing.T) {
	previous, err := analytics.PreviousHourKey("2025-03-01-00")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28-23", previous)
}

func TestHourKeyLexicographicOrderMatchesChronology(t *testing.T) {
	earlier := analytics.FormatHourKey(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	later := analytics.FormatHourKey(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, earlier, later)
}
