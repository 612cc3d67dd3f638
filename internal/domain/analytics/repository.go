package analytics

import (
	"context"
	"time"
)

// ActionEvent represents a user action on a piece of content.
type ActionEvent struct {
	ObjectID      string
	ObjectType    string
	Verb          string
	FingerprintID string
	VisitID       string
	CreatedAt     time.Time
}

// BeliefEvent represents a user's expressed belief or identity.
type BeliefEvent struct {
	BeliefID      string
	FingerprintID string
	Verb          string
	Object        *string // set for identifyAs events
	UpdatedAt     time.Time
}

// ContentHourlyRow is one grouped row from the persistent store: activity for
// one content object within one hour.
type ContentHourlyRow struct {
	HourKey        string
	ObjectID       string
	ObjectType     string
	FingerprintIDs []string
	TotalActions   int
	EventCounts    map[string]int
}

// SiteHourlyRow is one grouped site-level row: visits within one hour split
// by lead association.
type SiteHourlyRow struct {
	HourKey                 string
	TotalVisits             int
	AnonymousFingerprintIDs []string
	KnownFingerprintIDs     []string
	EventCounts             map[string]int
}

// EventRepository defines the contract between the analytics engine and the
// persistent event store.
type EventRepository interface {
	// StoreActionEvent saves a user action event.
	StoreActionEvent(ctx context.Context, event *ActionEvent) error

	// CountLeads returns the all-time lead total.
	CountLeads(ctx context.Context) (int, error)

	// LastActivity returns the most recent visit timestamp, or "" when the
	// tenant has no visits yet.
	LastActivity(ctx context.Context) (string, error)

	// ContentHourlyRows returns per-hour, per-content grouped action rows
	// with distinct fingerprints and a verb breakdown for [start, end).
	ContentHourlyRows(ctx context.Context, start, end time.Time) ([]*ContentHourlyRow, error)

	// SiteHourlyRows returns per-hour site visit rows split into known and
	// anonymous fingerprints via the lead-association join for [start, end).
	SiteHourlyRows(ctx context.Context, start, end time.Time) ([]*SiteHourlyRow, error)

	// KnownFingerprintIDs returns the set of fingerprints ever linked to a
	// lead, used by visitor-kind filtered reporting.
	KnownFingerprintIDs(ctx context.Context) (map[string]bool, error)

	// FindActionEventsInRange returns raw action events ordered by creation
	// time for [start, end). Used to replay history through funnel matching.
	FindActionEventsInRange(ctx context.Context, start, end time.Time) ([]*ActionEvent, error)

	// FindBeliefEventsInRange returns raw belief events ordered by update
	// time for [start, end).
	FindBeliefEventsInRange(ctx context.Context, start, end time.Time) ([]*BeliefEvent, error)
}

// ContentRepository resolves the content directory data the analytics layer
// depends on.
type ContentRepository interface {
	// StoryFragmentSlugMap returns slug -> content id for StoryFragments.
	StoryFragmentSlugMap(ctx context.Context) (map[string]string, error)

	// ContentTitleMap returns content id -> title for StoryFragments and
	// Panes, used to build human-readable funnel node names.
	ContentTitleMap(ctx context.Context) (map[string]string, error)

	// ActiveEpinets returns every configured funnel definition.
	ActiveEpinets(ctx context.Context) ([]*EpinetConfig, error)

	// SaveEpinetSteps persists an updated step list for one epinet.
	SaveEpinetSteps(ctx context.Context, epinetID string, steps []EpinetStep) error
}

// Lead is a visitor who registered a profile.
type Lead struct {
	ID             string
	FirstName      string
	Email          string
	Codeword       string
	ContactPersona string
	ShortBio       string
	FingerprintID  string
	CreatedAt      time.Time
}

// LeadRepository persists lead profiles.
type LeadRepository interface {
	// CreateLead stores a new lead and links it to its fingerprint.
	CreateLead(ctx context.Context, lead *Lead) error
}
