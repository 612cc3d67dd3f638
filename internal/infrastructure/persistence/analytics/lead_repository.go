package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/domain/analytics"
	"github.com/AtRiskMedia/tractstack-starter-sub006/internal/infrastructure/persistence/database"
	"golang.org/x/crypto/bcrypt"
)

// SQLLeadRepository persists lead profiles and links them to fingerprints.
type SQLLeadRepository struct {
	db *database.DB
}

// NewSQLLeadRepository creates a new instance of the repository.
func NewSQLLeadRepository(db *database.DB) *SQLLeadRepository {
	return &SQLLeadRepository{db: db}
}

// CreateLead stores a new lead with a bcrypt-hashed codeword and links the
// originating fingerprint so future visits count as known.
func (r *SQLLeadRepository) CreateLead(ctx context.Context, lead *analytics.Lead) error {
	hashedCodeword, err := bcrypt.GenerateFromPassword([]byte(lead.Codeword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash codeword: %w", err)
	}

	const insertLead = `
		INSERT INTO leads (id, first_name, email, password_hash, contact_persona, short_bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	_, err = r.db.ExecContext(ctx, insertLead,
		lead.ID,
		lead.FirstName,
		lead.Email,
		string(hashedCodeword),
		lead.ContactPersona,
		lead.ShortBio,
		lead.CreatedAt.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		r.db.Logger.Database().Error("Lead insert failed", "error", err.Error(), "leadId", lead.ID)
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	if lead.FingerprintID != "" {
		const linkFingerprint = `UPDATE fingerprints SET lead_id = ? WHERE id = ?`
		if _, err := r.db.ExecContext(ctx, linkFingerprint, lead.ID, lead.FingerprintID); err != nil {
			r.db.Logger.Database().Error("Fingerprint link failed",
				"error", err.Error(), "leadId", lead.ID, "fingerprintId", lead.FingerprintID)
			return fmt.Errorf("failed to link fingerprint to lead: %w", err)
		}
	}

	r.db.CheckAndLogSlowQuery("INSERT_LEAD", time.Since(start))
	return nil
}
