// Package types defines cache data structures for multi-tenant analytics.
package types

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
)

// TenantAnalyticsCache holds all hourly analytics state for a single tenant.
// One instance per tenant, created lazily, never shared across tenants.
//
// SiteBins and ContentBins are wholesale replaced by bulk loads (single
// assignment under Mu) and additively mutated by the real-time merger.
// ContentBins and EpinetBins are keyed "id:hourKey".
type TenantAnalyticsCache struct {
	SiteBins    map[string]*analytics.HourlySiteData    // hourKey -> bin
	ContentBins map[string]*analytics.HourlyContentData // "contentId:hourKey" -> bin
	EpinetBins  map[string]*analytics.HourlyEpinetData  // "epinetId:hourKey" -> bin

	// Computed metrics (short TTL, invalidated on reload)
	LeadMetrics   *LeadMetricsCache
	DashboardData *DashboardCache

	// Watermark and store-level scalars
	LastFullHour string
	LastUpdated  time.Time
	TotalLeads   int
	LastActivity string
	SlugMap      map[string]string // slug -> StoryFragment id

	Mu sync.RWMutex // Exported for access
}

// LeadMetricsCache wraps computed lead metrics with expiry metadata.
type LeadMetricsCache struct {
	Data       *analytics.LeadMetrics `json:"data"`
	ComputedAt time.Time              `json:"computedAt"`
	TTL        time.Duration          `json:"ttl"`
}

// DashboardCache wraps computed dashboard analytics with expiry metadata.
type DashboardCache struct {
	Data       *analytics.DashboardAnalytics `json:"data"`
	ComputedAt time.Time                     `json:"computedAt"`
	TTL        time.Duration                 `json:"ttl"`
}
