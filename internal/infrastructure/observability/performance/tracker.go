package performance

import (
	"fmt"
	"sync"
	"time"
)

// Tracker manages performance markers and aggregates operation metrics.
type Tracker struct {
	markers map[string]*Marker
	order   []string
	mu      sync.RWMutex
	started time.Time
	config  *TrackerConfig
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers            int           `json:"maxMarkers"`
	SlowOperationDuration time.Duration `json:"slowOperationDuration"`
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:            10000,
		SlowOperationDuration: time.Second,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}

	return &Tracker{
		markers: make(map[string]*Marker),
		order:   make([]string, 0),
		started: time.Now(),
		config:  config,
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, tenantID string) *Marker {
	marker := &Marker{
		Operation: operation,
		TenantID:  tenantID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // Assume success until proven otherwise
	}

	markerID := fmt.Sprintf("%s_%s_%d", tenantID, operation, time.Now().UnixNano())

	t.mu.Lock()
	defer t.mu.Unlock()

	t.markers[markerID] = marker
	t.order = append(t.order, markerID)

	// Bound retained markers, oldest first.
	if len(t.order) > t.config.MaxMarkers {
		evict := t.order[0]
		t.order = t.order[1:]
		delete(t.markers, evict)
	}

	return marker
}

// RecentMarkers returns up to limit completed markers, newest last.
func (t *Tracker) RecentMarkers(limit int) []*Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Marker, 0, limit)
	for i := len(t.order) - 1; i >= 0 && len(out) < limit; i-- {
		if marker := t.markers[t.order[i]]; marker != nil && marker.Completed {
			out = append(out, marker)
		}
	}

	// Reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SlowOperations returns completed markers that exceeded the slow threshold.
func (t *Tracker) SlowOperations() []*Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	slow := make([]*Marker, 0)
	for _, markerID := range t.order {
		marker := t.markers[markerID]
		if marker != nil && marker.Completed && marker.Duration >= t.config.SlowOperationDuration {
			slow = append(slow, marker)
		}
	}
	return slow
}

// Summary returns aggregate counts for monitoring endpoints.
func (t *Tracker) Summary() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	completed := 0
	failed := 0
	var totalDuration time.Duration
	for _, marker := range t.markers {
		if marker.Completed {
			completed++
			totalDuration += marker.Duration
			if !marker.Success {
				failed++
			}
		}
	}

	avg := time.Duration(0)
	if completed > 0 {
		avg = totalDuration / time.Duration(completed)
	}

	return map[string]any{
		"uptime":              time.Since(t.started).String(),
		"trackedOperations":   len(t.markers),
		"completedOperations": completed,
		"failedOperations":    failed,
		"averageDuration":     avg.String(),
	}
}
