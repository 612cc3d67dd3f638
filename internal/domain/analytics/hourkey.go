// Package analytics contains the hour-keyed analytics domain model: hour key
// codec, hourly bin structures, and pure range aggregation.
package analytics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedHourKey is returned when an hour key does not parse. Callers
// must treat this as fatal to the operation, never substitute a default.
var ErrMalformedHourKey = errors.New("malformed hour key")

// FormatHourKey truncates a timestamp to its UTC hour and renders it as
// YYYY-MM-DD-HH. Lexicographic order of keys matches chronological order.
func FormatHourKey(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("%04d-%02d-%02d-%02d", utc.Year(), utc.Month(), utc.Day(), utc.Hour())
}

// CurrentHourKey returns the hour key for the present UTC hour.
func CurrentHourKey() string {
	return FormatHourKey(time.Now())
}

// ParseHourKey converts an hour key back to the time.Time at the top of that
// UTC hour. Any structural or range violation yields ErrMalformedHourKey.
func ParseHourKey(key string) (time.Time, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 {
		return time.Time{}, fmt.Errorf("%w: expected YYYY-MM-DD-HH, got %q", ErrMalformedHourKey, key)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid year in %q", ErrMalformedHourKey, key)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: invalid month in %q", ErrMalformedHourKey, key)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: invalid day in %q", ErrMalformedHourKey, key)
	}
	hour, err := strconv.Atoi(parts[3])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: invalid hour in %q", ErrMalformedHourKey, key)
	}

	return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC), nil
}

// HourKeysForRange returns `hours` contiguous hour keys, most recent first,
// ending at the current UTC hour.
func HourKeysForRange(hours int) []string {
	return HourKeysEndingAt(time.Now(), hours)
}

// HourKeysEndingAt returns `hours` contiguous hour keys, most recent first,
// with end as the newest hour.
func HourKeysEndingAt(end time.Time, hours int) []string {
	if hours <= 0 {
		return nil
	}
	keys := make([]string, 0, hours)
	for i := 0; i < hours; i++ {
		keys = append(keys, FormatHourKey(end.Add(time.Duration(-i)*time.Hour)))
	}
	return keys
}

// HourKeysForOffsetRange returns the hour keys between startHoursAgo and
// endHoursAgo (both relative to now, startHoursAgo > endHoursAgo), most
// recent first. Used by caller-supplied custom reporting windows.
func HourKeysForOffsetRange(startHoursAgo, endHoursAgo int) []string {
	if startHoursAgo <= endHoursAgo {
		return nil
	}
	end := time.Now().Add(time.Duration(-endHoursAgo) * time.Hour)
	return HourKeysEndingAt(end, startHoursAgo-endHoursAgo)
}

// HoursBetween returns the absolute difference between two hour keys in whole
// hours. Malformed keys fail hard.
func HoursBetween(a, b string) (int, error) {
	ta, err := ParseHourKey(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseHourKey(b)
	if err != nil {
		return 0, err
	}
	diff := tb.Sub(ta)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / time.Hour), nil
}

// PreviousHourKey returns the hour key immediately before the given one.
func PreviousHourKey(key string) (string, error) {
	t, err := ParseHourKey(key)
	if err != nil {
		return "", err
	}
	return FormatHourKey(t.Add(-time.Hour)), nil
}
