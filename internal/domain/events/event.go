// Package events provides the inbound event payload types accepted by the
// ingestion endpoint.
package events

// Event is one tracked interaction or belief change inside a payload.
type Event struct {
	ID     string `json:"id" binding:"required"`
	Type   string `json:"type" binding:"required"`
	Verb   string `json:"verb" binding:"required"`
	Object string `json:"object,omitempty"`
}

// IsBelief reports whether the event carries belief semantics rather than a
// content action.
func (e Event) IsBelief() bool {
	return e.Type == "Belief"
}

// Visit identifies the session a payload belongs to.
type Visit struct {
	VisitID       string `json:"visit_id" binding:"required"`
	FingerprintID string `json:"fingerprint_id" binding:"required"`
	HasLead       bool   `json:"has_lead"`
}

// Payload is a batch of events submitted by one visitor in one request.
type Payload struct {
	Events []Event `json:"events" binding:"required"`
	Visit  Visit   `json:"visit" binding:"required"`
}
