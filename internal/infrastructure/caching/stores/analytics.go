// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
)

// AnalyticsStore implements hourly analytics caching with tenant isolation.
// The outer mutex guards the tenant map; each tenant cache carries its own
// RWMutex guarding bins and scalars.
type AnalyticsStore struct {
	tenantCaches map[string]*types.TenantAnalyticsCache
	mu           sync.RWMutex
	logger       *logging.ChanneledLogger
}

// NewAnalyticsStore creates a new analytics cache store
func NewAnalyticsStore(logger *logging.ChanneledLogger) *AnalyticsStore {
	return &AnalyticsStore{
		tenantCaches: make(map[string]*types.TenantAnalyticsCache),
		logger:       logger,
	}
}

func newTenantAnalyticsCache() *types.TenantAnalyticsCache {
	return &types.TenantAnalyticsCache{
		SiteBins:    make(map[string]*analytics.HourlySiteData),
		ContentBins: make(map[string]*analytics.HourlyContentData),
		EpinetBins:  make(map[string]*analytics.HourlyEpinetData),
		SlugMap:     make(map[string]string),
		LastUpdated: time.Now().UTC(),
	}
}

// InitializeTenant creates cache structures for a tenant
func (as *AnalyticsStore) InitializeTenant(tenantID string) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.tenantCaches[tenantID] == nil {
		as.tenantCaches[tenantID] = newTenantAnalyticsCache()
	}
}

// GetTenantCache safely retrieves a tenant's analytics cache
func (as *AnalyticsStore) GetTenantCache(tenantID string) (*types.TenantAnalyticsCache, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	cache, exists := as.tenantCaches[tenantID]
	return cache, exists
}

func (as *AnalyticsStore) getOrInitTenantCache(tenantID string) *types.TenantAnalyticsCache {
	if cache, exists := as.GetTenantCache(tenantID); exists {
		return cache
	}
	as.InitializeTenant(tenantID)
	cache, _ := as.GetTenantCache(tenantID)
	return cache
}

// IsTenantCacheEmpty reports whether the tenant has no loaded content bins,
// the signal that a full-window bulk load is required.
func (as *AnalyticsStore) IsTenantCacheEmpty(tenantID string) bool {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return true
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()
	return len(cache.ContentBins) == 0 && len(cache.SiteBins) == 0
}

// =============================================================================
// Bin accessors
// =============================================================================

// GetOrCreateSiteBin lazily initializes and returns the site bin for an hour.
func (as *AnalyticsStore) GetOrCreateSiteBin(tenantID, hourKey string) *analytics.HourlySiteData {
	cache := as.getOrInitTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	bin, exists := cache.SiteBins[hourKey]
	if !exists {
		bin = analytics.NewEmptyHourlySiteData()
		cache.SiteBins[hourKey] = bin
	}
	cache.LastUpdated = time.Now().UTC()
	return bin
}

// GetOrCreateContentBin lazily initializes and returns one content item's bin
// for an hour.
func (as *AnalyticsStore) GetOrCreateContentBin(tenantID, contentID, hourKey string) *analytics.HourlyContentData {
	cache := as.getOrInitTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	binKey := contentID + ":" + hourKey
	bin, exists := cache.ContentBins[binKey]
	if !exists {
		bin = analytics.NewEmptyHourlyContentData()
		cache.ContentBins[binKey] = bin
	}
	cache.LastUpdated = time.Now().UTC()
	return bin
}

// GetOrCreateEpinetBin lazily initializes and returns one epinet's bin for an
// hour.
func (as *AnalyticsStore) GetOrCreateEpinetBin(tenantID, epinetID, hourKey string) *analytics.HourlyEpinetData {
	cache := as.getOrInitTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	binKey := epinetID + ":" + hourKey
	bin, exists := cache.EpinetBins[binKey]
	if !exists {
		bin = analytics.NewEmptyHourlyEpinetData()
		cache.EpinetBins[binKey] = bin
	}
	cache.LastUpdated = time.Now().UTC()
	return bin
}

// GetEpinetBin retrieves an epinet bin without creating it.
func (as *AnalyticsStore) GetEpinetBin(tenantID, epinetID, hourKey string) (*analytics.HourlyEpinetData, bool) {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	bin, exists := cache.EpinetBins[epinetID+":"+hourKey]
	return bin, exists
}

// GetSiteBinRange returns the site bins present for the given hour keys.
// Missing hours are simply absent from the result.
func (as *AnalyticsStore) GetSiteBinRange(tenantID string, hourKeys []string) map[string]*analytics.HourlySiteData {
	found := make(map[string]*analytics.HourlySiteData)
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return found
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	for _, hourKey := range hourKeys {
		if bin, ok := cache.SiteBins[hourKey]; ok {
			found[hourKey] = bin
		}
	}
	return found
}

// GetContentBinRange returns one content item's bins for the given hour keys.
func (as *AnalyticsStore) GetContentBinRange(tenantID, contentID string, hourKeys []string) map[string]*analytics.HourlyContentData {
	found := make(map[string]*analytics.HourlyContentData)
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return found
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	for _, hourKey := range hourKeys {
		if bin, ok := cache.ContentBins[contentID+":"+hourKey]; ok {
			found[hourKey] = bin
		}
	}
	return found
}

// GetEpinetBinRange returns one epinet's bins for the given hour keys plus
// the hour keys that had no bin.
func (as *AnalyticsStore) GetEpinetBinRange(tenantID, epinetID string, hourKeys []string) (map[string]*analytics.HourlyEpinetData, []string) {
	found := make(map[string]*analytics.HourlyEpinetData)
	missing := make([]string, 0)

	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return found, hourKeys
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	for _, hourKey := range hourKeys {
		if bin, ok := cache.EpinetBins[epinetID+":"+hourKey]; ok {
			found[hourKey] = bin
		} else {
			missing = append(missing, hourKey)
		}
	}
	return found, missing
}

// HasEpinetData reports whether any bin exists for the tenant/epinet pair.
// Absence is an expected condition, distinct from an empty graph.
func (as *AnalyticsStore) HasEpinetData(tenantID, epinetID string) bool {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	prefix := epinetID + ":"
	for binKey := range cache.EpinetBins {
		if len(binKey) > len(prefix) && binKey[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// SiteHourKeys returns every hour key currently holding a site bin, used by
// all-time aggregation.
func (as *AnalyticsStore) SiteHourKeys(tenantID string) []string {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	keys := make([]string, 0, len(cache.SiteBins))
	for hourKey := range cache.SiteBins {
		keys = append(keys, hourKey)
	}
	return keys
}

// ContentHourKeys returns the hour keys holding bins for one content id.
func (as *AnalyticsStore) ContentHourKeys(tenantID, contentID string) []string {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	prefix := contentID + ":"
	keys := make([]string, 0)
	for binKey := range cache.ContentBins {
		if len(binKey) > len(prefix) && binKey[:len(prefix)] == prefix {
			keys = append(keys, binKey[len(prefix):])
		}
	}
	return keys
}

// ContentIDs returns the distinct content ids that have at least one bin.
func (as *AnalyticsStore) ContentIDs(tenantID string) []string {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for binKey := range cache.ContentBins {
		parts := splitBinKey(binKey)
		if len(parts) == 2 && !seen[parts[0]] {
			seen[parts[0]] = true
			ids = append(ids, parts[0])
		}
	}
	return ids
}

// EpinetIDs returns the distinct epinet ids that have at least one bin.
func (as *AnalyticsStore) EpinetIDs(tenantID string) []string {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for binKey := range cache.EpinetBins {
		parts := splitBinKey(binKey)
		if len(parts) == 2 && !seen[parts[0]] {
			seen[parts[0]] = true
			ids = append(ids, parts[0])
		}
	}
	return ids
}

// =============================================================================
// Bulk replacement
// =============================================================================

// ReplaceRange atomically replaces every site and content bin inside the
// loaded hour window with freshly loaded data, and updates the store scalars
// and watermark. Hours outside the window are untouched; readers never
// observe a partially applied window.
func (as *AnalyticsStore) ReplaceRange(
	tenantID string,
	hourKeys []string,
	siteBins map[string]*analytics.HourlySiteData,
	contentBins map[string]*analytics.HourlyContentData,
	watermark string,
	totalLeads int,
	lastActivity string,
	slugMap map[string]string,
) {
	cache := as.getOrInitTenantCache(tenantID)

	inWindow := make(map[string]bool, len(hourKeys))
	for _, hourKey := range hourKeys {
		inWindow[hourKey] = true
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	for hourKey := range cache.SiteBins {
		if inWindow[hourKey] {
			delete(cache.SiteBins, hourKey)
		}
	}
	for binKey := range cache.ContentBins {
		parts := splitBinKey(binKey)
		if len(parts) == 2 && inWindow[parts[1]] {
			delete(cache.ContentBins, binKey)
		}
	}

	for hourKey, bin := range siteBins {
		cache.SiteBins[hourKey] = bin
	}
	for binKey, bin := range contentBins {
		cache.ContentBins[binKey] = bin
	}

	cache.TotalLeads = totalLeads
	cache.LastActivity = lastActivity
	if slugMap != nil {
		cache.SlugMap = slugMap
	}
	cache.LastFullHour = watermark
	cache.LastUpdated = time.Now().UTC()

	// Loaded bins supersede any computed metrics derived from older data.
	cache.LeadMetrics = nil
	cache.DashboardData = nil

	if as.logger != nil {
		as.logger.Cache().Debug("Replaced analytics range",
			"tenantId", tenantID, "hours", len(hourKeys),
			"siteBins", len(siteBins), "contentBins", len(contentBins), "watermark", watermark)
	}
}

// ReplaceEpinetRange atomically replaces every epinet bin inside the loaded
// hour window.
func (as *AnalyticsStore) ReplaceEpinetRange(tenantID string, hourKeys []string, epinetBins map[string]*analytics.HourlyEpinetData) {
	cache := as.getOrInitTenantCache(tenantID)

	inWindow := make(map[string]bool, len(hourKeys))
	for _, hourKey := range hourKeys {
		inWindow[hourKey] = true
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	for binKey := range cache.EpinetBins {
		parts := splitBinKey(binKey)
		if len(parts) == 2 && inWindow[parts[1]] {
			delete(cache.EpinetBins, binKey)
		}
	}
	for binKey, bin := range epinetBins {
		cache.EpinetBins[binKey] = bin
	}
	cache.LastUpdated = time.Now().UTC()
}

// =============================================================================
// Store scalars and watermark
// =============================================================================

// UpdateLastFullHour updates the watermark for a tenant
func (as *AnalyticsStore) UpdateLastFullHour(tenantID, hourKey string) {
	cache := as.getOrInitTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.LastFullHour = hourKey
	cache.LastUpdated = time.Now().UTC()
}

// GetLastFullHour retrieves the watermark for a tenant, "" when never loaded.
func (as *AnalyticsStore) GetLastFullHour(tenantID string) string {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return ""
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()
	return cache.LastFullHour
}

// IncrementTotalLeads bumps the live lead counter.
func (as *AnalyticsStore) IncrementTotalLeads(tenantID string) {
	cache := as.getOrInitTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.TotalLeads++
	cache.LastUpdated = time.Now().UTC()
}

// GetLeadScalars returns the all-time lead count and last activity timestamp.
func (as *AnalyticsStore) GetLeadScalars(tenantID string) (int, string) {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return 0, ""
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()
	return cache.TotalLeads, cache.LastActivity
}

// GetSlugMap returns a copy of the slug -> content id directory.
func (as *AnalyticsStore) GetSlugMap(tenantID string) map[string]string {
	out := make(map[string]string)
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return out
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	for slug, id := range cache.SlugMap {
		out[slug] = id
	}
	return out
}

// =============================================================================
// Computed metrics
// =============================================================================

// GetLeadMetrics retrieves cached lead metrics, expired entries miss.
func (as *AnalyticsStore) GetLeadMetrics(tenantID string) (*types.LeadMetricsCache, bool) {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if cache.LeadMetrics == nil {
		return nil, false
	}
	if time.Since(cache.LeadMetrics.ComputedAt) > cache.LeadMetrics.TTL {
		return nil, false
	}
	return cache.LeadMetrics, true
}

// SetLeadMetrics stores computed lead metrics
func (as *AnalyticsStore) SetLeadMetrics(tenantID string, metrics *types.LeadMetricsCache) {
	cache := as.getOrInitTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.LeadMetrics = metrics
	cache.LastUpdated = time.Now().UTC()
}

// GetDashboardData retrieves cached dashboard data, expired entries miss.
func (as *AnalyticsStore) GetDashboardData(tenantID string) (*types.DashboardCache, bool) {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if cache.DashboardData == nil {
		return nil, false
	}
	if time.Since(cache.DashboardData.ComputedAt) > cache.DashboardData.TTL {
		return nil, false
	}
	return cache.DashboardData, true
}

// SetDashboardData stores computed dashboard data
func (as *AnalyticsStore) SetDashboardData(tenantID string, data *types.DashboardCache) {
	cache := as.getOrInitTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.DashboardData = data
	cache.LastUpdated = time.Now().UTC()
}

// InvalidateComputedMetrics clears computed metrics but keeps raw bins.
func (as *AnalyticsStore) InvalidateComputedMetrics(tenantID string) {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.LeadMetrics = nil
	cache.DashboardData = nil
	cache.LastUpdated = time.Now().UTC()
}

// =============================================================================
// Cache management
// =============================================================================

// PurgeExpiredBins removes hourly bins whose hour key sorts before olderThan.
// Hour keys sort chronologically, so a plain string compare suffices.
func (as *AnalyticsStore) PurgeExpiredBins(tenantID, olderThan string) int {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return 0
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	purged := 0
	for binKey := range cache.EpinetBins {
		parts := splitBinKey(binKey)
		if len(parts) == 2 && parts[1] < olderThan {
			delete(cache.EpinetBins, binKey)
			purged++
		}
	}
	for binKey := range cache.ContentBins {
		parts := splitBinKey(binKey)
		if len(parts) == 2 && parts[1] < olderThan {
			delete(cache.ContentBins, binKey)
			purged++
		}
	}
	for hourKey := range cache.SiteBins {
		if hourKey < olderThan {
			delete(cache.SiteBins, hourKey)
			purged++
		}
	}

	if purged > 0 {
		cache.LastUpdated = time.Now().UTC()
	}
	return purged
}

// GetAnalyticsSummary returns cache status summary for debugging
func (as *AnalyticsStore) GetAnalyticsSummary(tenantID string) map[string]any {
	cache, exists := as.GetTenantCache(tenantID)
	if !exists {
		return map[string]any{"exists": false}
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	return map[string]any{
		"exists":         true,
		"epinetBins":     len(cache.EpinetBins),
		"contentBins":    len(cache.ContentBins),
		"siteBins":       len(cache.SiteBins),
		"hasLeadMetrics": cache.LeadMetrics != nil,
		"hasDashboard":   cache.DashboardData != nil,
		"totalLeads":     cache.TotalLeads,
		"lastFullHour":   cache.LastFullHour,
		"lastUpdated":    cache.LastUpdated,
	}
}

// DropTenant evicts a tenant's entire analytics cache.
func (as *AnalyticsStore) DropTenant(tenantID string) {
	as.mu.Lock()
	defer as.mu.Unlock()
	delete(as.tenantCaches, tenantID)
}

// splitBinKey splits a bin key like "epinetID:hourKey" on its last colon, so
// ids containing colons stay intact.
func splitBinKey(binKey string) []string {
	colonIndex := -1
	for i := len(binKey) - 1; i >= 0; i-- {
		if binKey[i] == ':' {
			colonIndex = i
			break
		}
	}
	if colonIndex == -1 {
		return []string{binKey}
	}
	return []string{binKey[:colonIndex], binKey[colonIndex+1:]}
}
