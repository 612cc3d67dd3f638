// Package tenant provides tenant context management for multi-tenant support.
package tenant

import (
	domainAnalytics "github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/caching/manager"
	persistenceAnalytics "github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/persistence/content"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
)

// Context holds tenant-specific request context
type Context struct {
	TenantID     string
	Config       *Config
	Database     *Database
	Status       string
	CacheManager *manager.Manager
	Logger       *logging.ChanneledLogger

	// Repository overrides; when set they take precedence over the SQL
	// implementations. Used by tests to run against in-memory fakes.
	EventRepository   domainAnalytics.EventRepository
	ContentRepository domainAnalytics.ContentRepository
	LeadRepository    domainAnalytics.LeadRepository
}

// Close cleans up the tenant context
func (ctx *Context) Close() error {
	if ctx.Database != nil {
		return ctx.Database.Close()
	}
	return nil
}

// IsActive returns true if the tenant is active
func (ctx *Context) IsActive() bool {
	return ctx.Status == "active"
}

// GetDatabaseInfo returns database connection information for logging
func (ctx *Context) GetDatabaseInfo() string {
	if ctx.Database != nil {
		return ctx.Database.GetConnectionInfo()
	}
	return "no database connection"
}

func (ctx *Context) db() *database.DB {
	return database.New(ctx.Database.Conn, ctx.TenantID, ctx.Logger)
}

// =============================================================================
// Repository Factory Methods
// =============================================================================

// EventRepo returns the persistent event store for this tenant.
func (ctx *Context) EventRepo() domainAnalytics.EventRepository {
	if ctx.EventRepository != nil {
		return ctx.EventRepository
	}
	return persistenceAnalytics.NewSQLEventRepository(ctx.db())
}

// ContentRepo returns the content directory repository for this tenant.
func (ctx *Context) ContentRepo() domainAnalytics.ContentRepository {
	if ctx.ContentRepository != nil {
		return ctx.ContentRepository
	}
	return content.NewSQLContentRepository(ctx.db())
}

// LeadRepo returns the lead profile repository for this tenant.
func (ctx *Context) LeadRepo() domainAnalytics.LeadRepository {
	if ctx.LeadRepository != nil {
		return ctx.LeadRepository
	}
	return persistenceAnalytics.NewSQLLeadRepository(ctx.db())
}
