// Package database wraps a tenant's SQL connection with query helpers and
// slow-query instrumentation used by the persistence repositories.
package database

import (
	"strings"
	"time"

	"database/sql"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-starter-sub006/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// DB represents a tenant-scoped wrapper around the standard SQL connection.
type DB struct {
	*sql.DB
	TenantID string
	Logger   *logging.ChanneledLogger
}

// New wraps an existing pooled connection for a tenant.
func New(conn *sql.DB, tenantID string, logger *logging.ChanneledLogger) *DB {
	return &DB{DB: conn, TenantID: tenantID, Logger: logger}
}

// GetSlowQueryThreshold returns the configured slow query threshold.
func GetSlowQueryThreshold() time.Duration {
	return config.SlowQueryThreshold
}

// CheckAndLogSlowQuery logs a query on the slow-query channel when its
// duration exceeds the threshold. Bulk operations get a 3x allowance.
func (db *DB) CheckAndLogSlowQuery(queryLabel string, duration time.Duration) {
	threshold := GetSlowQueryThreshold()
	if strings.HasPrefix(queryLabel, "BULK_") {
		threshold *= 3
	}

	if duration > threshold && db.Logger != nil {
		db.Logger.LogSlowQuery(queryLabel, duration, db.TenantID)
	}
}
