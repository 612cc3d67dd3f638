// Package content provides SQL repositories for the content directory
// tables the analytics layer reads: storyfragments and epinets.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/persistence/database"
)

// SQLContentRepository implements analytics.ContentRepository.
type SQLContentRepository struct {
	db *database.DB
}

// NewSQLContentRepository creates a new instance of the repository.
func NewSQLContentRepository(db *database.DB) *SQLContentRepository {
	return &SQLContentRepository{db: db}
}

// StoryFragmentSlugMap returns slug -> content id for every StoryFragment.
func (r *SQLContentRepository) StoryFragmentSlugMap(ctx context.Context) (map[string]string, error) {
	const query = `SELECT id, slug FROM storyfragments`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query storyfragment slugs: %w", err)
	}
	defer rows.Close()

	slugMap := make(map[string]string)
	for rows.Next() {
		var id, slug string
		if err := rows.Scan(&id, &slug); err != nil {
			r.db.Logger.Database().Error("Failed to scan storyfragment slug row", "error", err.Error())
			continue
		}
		slugMap[slug] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storyfragment slug iteration failed: %w", err)
	}

	r.db.CheckAndLogSlowQuery("STORYFRAGMENT_SLUGS", time.Since(start))
	return slugMap, nil
}

// ContentTitleMap returns content id -> title across StoryFragments and
// Panes.
func (r *SQLContentRepository) ContentTitleMap(ctx context.Context) (map[string]string, error) {
	const query = `
		SELECT id, title FROM storyfragments
		UNION ALL
		SELECT id, title FROM panes`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query content titles: %w", err)
	}
	defer rows.Close()

	titles := make(map[string]string)
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			r.db.Logger.Database().Error("Failed to scan content title row", "error", err.Error())
			continue
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("content title iteration failed: %w", err)
	}

	r.db.CheckAndLogSlowQuery("CONTENT_TITLES", time.Since(start))
	return titles, nil
}

// ActiveEpinets returns every funnel definition, decoding the step list from
// each epinet's options payload. Epinets with malformed payloads are skipped.
func (r *SQLContentRepository) ActiveEpinets(ctx context.Context) ([]*analytics.EpinetConfig, error) {
	const query = `SELECT id, title, options_payload FROM epinets`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query epinets: %w", err)
	}
	defer rows.Close()

	var epinets []*analytics.EpinetConfig
	for rows.Next() {
		var epinet analytics.EpinetConfig
		var optionsPayload string

		if err := rows.Scan(&epinet.ID, &epinet.Title, &optionsPayload); err != nil {
			r.db.Logger.Database().Error("Failed to scan epinet row", "error", err.Error())
			continue
		}

		if err := json.Unmarshal([]byte(optionsPayload), &epinet.Steps); err != nil {
			r.db.Logger.Database().Error("Skipping epinet with malformed options payload",
				"epinetId", epinet.ID, "error", err.Error())
			continue
		}

		epinets = append(epinets, &epinet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("epinet iteration failed: %w", err)
	}

	r.db.CheckAndLogSlowQuery("ACTIVE_EPINETS", time.Since(start))
	return epinets, nil
}

// SaveEpinetSteps persists an updated step list for one epinet.
func (r *SQLContentRepository) SaveEpinetSteps(ctx context.Context, epinetID string, steps []analytics.EpinetStep) error {
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to encode epinet steps: %w", err)
	}

	const query = `UPDATE epinets SET options_payload = ? WHERE id = ?`

	start := time.Now()
	if _, err := r.db.ExecContext(ctx, query, string(stepsJSON), epinetID); err != nil {
		r.db.Logger.Database().Error("Epinet steps update failed", "error", err.Error(), "epinetId", epinetID)
		return fmt.Errorf("failed to update epinet steps: %w", err)
	}

	r.db.CheckAndLogSlowQuery("UPDATE_EPINET_STEPS", time.Since(start))
	return nil
}
