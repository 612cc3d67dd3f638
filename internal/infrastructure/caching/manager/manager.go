// Package manager provides centralized cache operations with proper tenant isolation
package manager

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
)

// Manager owns the per-tenant cache stores and their lifecycle.
type Manager struct {
	Mu             sync.RWMutex
	LastAccessed   map[string]time.Time
	analyticsStore *stores.AnalyticsStore
	logger         *logging.ChanneledLogger
}

func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager", "stores", []string{"analytics"})
	}

	return &Manager{
		LastAccessed:   make(map[string]time.Time),
		analyticsStore: stores.NewAnalyticsStore(logger),
		logger:         logger,
	}
}

// Analytics exposes the hourly analytics store.
func (m *Manager) Analytics() *stores.AnalyticsStore {
	return m.analyticsStore
}

// InitializeTenant creates cache structures for a tenant.
func (m *Manager) InitializeTenant(tenantID string) {
	start := time.Now()
	if m.logger != nil {
		m.logger.Cache().Debug("Initializing tenant cache", "tenantId", tenantID)
	}

	m.analyticsStore.InitializeTenant(tenantID)
	m.UpdateTenantAccessTime(tenantID)

	if m.logger != nil {
		m.logger.Cache().Info("Tenant cache initialized", "tenantId", tenantID, "duration", time.Since(start))
	}
}

// UpdateTenantAccessTime records tenant activity for idle eviction.
func (m *Manager) UpdateTenantAccessTime(tenantID string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.LastAccessed[tenantID] = time.Now().UTC()
}

// KnownTenants lists every tenant that has touched the cache.
func (m *Manager) KnownTenants() []string {
	m.Mu.RLock()
	defer m.Mu.RUnlock()

	tenants := make([]string, 0, len(m.LastAccessed))
	for tenantID := range m.LastAccessed {
		tenants = append(tenants, tenantID)
	}
	return tenants
}

// PurgeExpiredBins evicts bins older than the rolling window for every known
// tenant. Returns the total number of purged bins.
func (m *Manager) PurgeExpiredBins(windowHours int) int {
	cutoff := analytics.FormatHourKey(time.Now().Add(time.Duration(-windowHours) * time.Hour))

	total := 0
	for _, tenantID := range m.KnownTenants() {
		total += m.analyticsStore.PurgeExpiredBins(tenantID, cutoff)
	}

	if total > 0 && m.logger != nil {
		m.logger.Cache().Info("Purged expired analytics bins", "count", total, "cutoff", cutoff)
	}
	return total
}

// DropTenant evicts every cache owned by a tenant.
func (m *Manager) DropTenant(tenantID string) {
	m.analyticsStore.DropTenant(tenantID)

	m.Mu.Lock()
	defer m.Mu.Unlock()
	delete(m.LastAccessed, tenantID)

	if m.logger != nil {
		m.logger.Cache().Info("Dropped tenant caches", "tenantId", tenantID)
	}
}
