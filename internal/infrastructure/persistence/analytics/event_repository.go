// Package analytics provides the concrete SQL-based implementations
// for analytics event persistence and the grouped hourly queries the
// bin loaders run against the events store.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/security"
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// SQLEventRepository implements analytics.EventRepository against the
// tenant's actions/visits/fingerprints tables.
type SQLEventRepository struct {
	db *database.DB
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB) *SQLEventRepository {
	return &SQLEventRepository{db: db}
}

// StoreActionEvent saves a user action event to the database.
func (r *SQLEventRepository) StoreActionEvent(ctx context.Context, event *analytics.ActionEvent) error {
	actionID := security.GenerateULID()

	const query = `
		INSERT INTO actions (id, object_id, object_type, visit_id, fingerprint_id, verb, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		actionID,
		event.ObjectID,
		event.ObjectType,
		event.VisitID,
		event.FingerprintID,
		event.Verb,
		event.CreatedAt.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		r.db.Logger.Database().Error("Action event insert failed",
			"error", err.Error(),
			"actionId", actionID,
			"objectId", event.ObjectID,
			"verb", event.Verb,
			"fingerprintId", event.FingerprintID)
		return fmt.Errorf("failed to store action event: %w", err)
	}

	r.db.CheckAndLogSlowQuery("INSERT_ACTION_EVENT", time.Since(start))
	return nil
}

// CountLeads returns the all-time lead total.
func (r *SQLEventRepository) CountLeads(ctx context.Context) (int, error) {
	start := time.Now()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}

	r.db.CheckAndLogSlowQuery("COUNT_LEADS", time.Since(start))
	return count, nil
}

// LastActivity returns the most recent visit timestamp, or "" when the tenant
// has no visits yet.
func (r *SQLEventRepository) LastActivity(ctx context.Context) (string, error) {
	start := time.Now()

	var lastActivity sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM visits`).Scan(&lastActivity)
	if err != nil {
		return "", fmt.Errorf("failed to query last activity: %w", err)
	}

	r.db.CheckAndLogSlowQuery("LAST_ACTIVITY", time.Since(start))
	if !lastActivity.Valid {
		return "", nil
	}
	return lastActivity.String, nil
}

// ContentHourlyRows returns per-hour, per-content grouped action rows with
// distinct fingerprints and a verb breakdown for [start, end).
func (r *SQLEventRepository) ContentHourlyRows(ctx context.Context, startTime, endTime time.Time) ([]*analytics.ContentHourlyRow, error) {
	const query = `
		WITH verb_counts AS (
			SELECT
				strftime('%Y-%m-%d-%H', created_at) as hour_key,
				object_id,
				object_type,
				verb,
				COUNT(*) as count
			FROM actions
			WHERE
				created_at >= ? AND created_at < ?
				AND object_type IN ('StoryFragment', 'Pane')
			GROUP BY hour_key, object_id, object_type, verb
		)
		SELECT
			vc.hour_key,
			vc.object_id,
			vc.object_type,
			GROUP_CONCAT(DISTINCT a.fingerprint_id) as fingerprints,
			SUM(vc.count) as total_actions,
			json_group_object(vc.verb, vc.count) as event_counts
		FROM verb_counts vc
		JOIN actions a ON
			a.object_id = vc.object_id AND
			a.object_type = vc.object_type AND
			strftime('%Y-%m-%d-%H', a.created_at) = vc.hour_key
		WHERE
			a.created_at >= ? AND a.created_at < ?
			AND a.object_type IN ('StoryFragment', 'Pane')
		GROUP BY vc.hour_key, vc.object_id, vc.object_type`

	startStr := startTime.UTC().Format(sqliteTimeFormat)
	endStr := endTime.UTC().Format(sqliteTimeFormat)

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, startStr, endStr, startStr, endStr)
	if err != nil {
		return nil, fmt.Errorf("failed to query content hourly rows: %w", err)
	}
	defer rows.Close()

	var result []*analytics.ContentHourlyRow
	for rows.Next() {
		var row analytics.ContentHourlyRow
		var fingerprints sql.NullString
		var eventCountsJSON sql.NullString

		if err := rows.Scan(&row.HourKey, &row.ObjectID, &row.ObjectType, &fingerprints, &row.TotalActions, &eventCountsJSON); err != nil {
			r.db.Logger.Database().Error("Failed to scan content hourly row", "error", err.Error())
			continue
		}

		row.FingerprintIDs = splitConcat(fingerprints)
		row.EventCounts = parseEventCounts(eventCountsJSON)
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("content hourly row iteration failed: %w", err)
	}

	r.db.CheckAndLogSlowQuery("BULK_CONTENT_HOURLY", time.Since(start))
	return result, nil
}

// SiteHourlyRows returns per-hour site visit rows split into known and
// anonymous fingerprints via the lead-association join for [start, end).
func (r *SQLEventRepository) SiteHourlyRows(ctx context.Context, startTime, endTime time.Time) ([]*analytics.SiteHourlyRow, error) {
	const query = `
		WITH visit_fingerprints AS (
			SELECT
				v.id as visit_id,
				v.fingerprint_id,
				f.lead_id,
				strftime('%Y-%m-%d-%H', v.created_at) as hour_key
			FROM visits v
			JOIN fingerprints f ON v.fingerprint_id = f.id
			WHERE v.created_at >= ? AND v.created_at < ?
		),
		verb_counts AS (
			SELECT
				strftime('%Y-%m-%d-%H', created_at) as hour_key,
				verb,
				COUNT(*) as count
			FROM actions
			WHERE created_at >= ? AND created_at < ?
			GROUP BY hour_key, verb
		)
		SELECT
			vf.hour_key,
			COUNT(DISTINCT vf.visit_id) as total_visits,
			GROUP_CONCAT(DISTINCT CASE WHEN vf.lead_id IS NULL THEN vf.fingerprint_id ELSE NULL END) as anonymous_fingerprints,
			GROUP_CONCAT(DISTINCT CASE WHEN vf.lead_id IS NOT NULL THEN vf.fingerprint_id ELSE NULL END) as known_fingerprints,
			(SELECT json_group_object(vc.verb, vc.count) FROM verb_counts vc WHERE vc.hour_key = vf.hour_key) as event_counts
		FROM visit_fingerprints vf
		GROUP BY vf.hour_key`

	startStr := startTime.UTC().Format(sqliteTimeFormat)
	endStr := endTime.UTC().Format(sqliteTimeFormat)

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, startStr, endStr, startStr, endStr)
	if err != nil {
		return nil, fmt.Errorf("failed to query site hourly rows: %w", err)
	}
	defer rows.Close()

	var result []*analytics.SiteHourlyRow
	for rows.Next() {
		var row analytics.SiteHourlyRow
		var anonymous sql.NullString
		var known sql.NullString
		var eventCountsJSON sql.NullString

		if err := rows.Scan(&row.HourKey, &row.TotalVisits, &anonymous, &known, &eventCountsJSON); err != nil {
			r.db.Logger.Database().Error("Failed to scan site hourly row", "error", err.Error())
			continue
		}

		row.AnonymousFingerprintIDs = splitConcat(anonymous)
		row.KnownFingerprintIDs = splitConcat(known)
		row.EventCounts = parseEventCounts(eventCountsJSON)
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("site hourly row iteration failed: %w", err)
	}

	r.db.CheckAndLogSlowQuery("BULK_SITE_HOURLY", time.Since(start))
	return result, nil
}

// KnownFingerprintIDs returns the set of fingerprints ever linked to a lead.
func (r *SQLEventRepository) KnownFingerprintIDs(ctx context.Context) (map[string]bool, error) {
	const query = `SELECT DISTINCT fingerprint_id FROM fingerprints WHERE lead_id IS NOT NULL`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query known fingerprints: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var fingerprintID string
		if err := rows.Scan(&fingerprintID); err != nil {
			continue
		}
		known[fingerprintID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("known fingerprint iteration failed: %w", err)
	}

	r.db.CheckAndLogSlowQuery("KNOWN_FINGERPRINTS", time.Since(start))
	return known, nil
}

// FindActionEventsInRange retrieves raw action events for funnel replay.
func (r *SQLEventRepository) FindActionEventsInRange(ctx context.Context, startTime, endTime time.Time) ([]*analytics.ActionEvent, error) {
	const query = `
		SELECT object_id, object_type, verb, fingerprint_id, visit_id, created_at
		FROM actions
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query,
		startTime.UTC().Format(sqliteTimeFormat),
		endTime.UTC().Format(sqliteTimeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query action events: %w", err)
	}
	defer rows.Close()

	var events []*analytics.ActionEvent
	for rows.Next() {
		var event analytics.ActionEvent
		var createdAtStr string

		if err := rows.Scan(&event.ObjectID, &event.ObjectType, &event.Verb, &event.FingerprintID, &event.VisitID, &createdAtStr); err != nil {
			r.db.Logger.Database().Error("Failed to scan action event row", "error", err.Error())
			continue
		}

		event.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			r.db.Logger.Database().Error("Failed to parse action event timestamp", "error", err.Error(), "timestamp", createdAtStr)
			continue
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("action event iteration failed: %w", err)
	}

	r.db.CheckAndLogSlowQuery("BULK_ACTION_EVENTS", time.Since(start))
	return events, nil
}

// FindBeliefEventsInRange retrieves raw belief events for funnel replay.
func (r *SQLEventRepository) FindBeliefEventsInRange(ctx context.Context, startTime, endTime time.Time) ([]*analytics.BeliefEvent, error) {
	const query = `
		SELECT belief_id, fingerprint_id, verb, object, updated_at
		FROM heldbeliefs
		WHERE updated_at >= ? AND updated_at < ?
		ORDER BY updated_at`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query,
		startTime.UTC().Format(sqliteTimeFormat),
		endTime.UTC().Format(sqliteTimeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query belief events: %w", err)
	}
	defer rows.Close()

	var events []*analytics.BeliefEvent
	for rows.Next() {
		var event analytics.BeliefEvent
		var object sql.NullString
		var updatedAtStr string

		if err := rows.Scan(&event.BeliefID, &event.FingerprintID, &event.Verb, &object, &updatedAtStr); err != nil {
			r.db.Logger.Database().Error("Failed to scan belief event row", "error", err.Error())
			continue
		}

		if object.Valid {
			event.Object = &object.String
		}
		event.UpdatedAt, err = parseTimestamp(updatedAtStr)
		if err != nil {
			r.db.Logger.Database().Error("Failed to parse belief event timestamp", "error", err.Error(), "timestamp", updatedAtStr)
			continue
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("belief event iteration failed: %w", err)
	}

	r.db.CheckAndLogSlowQuery("BULK_BELIEF_EVENTS", time.Since(start))
	return events, nil
}

// splitConcat expands a GROUP_CONCAT column into its distinct values.
func splitConcat(concat sql.NullString) []string {
	if !concat.Valid || concat.String == "" {
		return nil
	}

	parts := strings.Split(concat.String, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}

// parseEventCounts decodes a json_group_object(verb, count) column.
func parseEventCounts(raw sql.NullString) map[string]int {
	counts := make(map[string]int)
	if !raw.Valid || raw.String == "" {
		return counts
	}
	if err := json.Unmarshal([]byte(raw.String), &counts); err != nil {
		return make(map[string]int)
	}
	return counts
}

// parseTimestamp handles both SQLite's space-separated format and RFC3339,
// which older clients wrote.
func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(sqliteTimeFormat, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
