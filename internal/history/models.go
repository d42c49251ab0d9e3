// Package history is the append-only audit log of a provider's verification.
// Entries are never updated or deleted; the workflow's current state must
// always be re-derivable from the ordered entry sequence, even though the
// orchestrator keeps a materialized record for reads.
package history

import (
	"time"

	id "confia/pkg/domain"

	"confia/internal/verification/models"
)

// ActionType classifies audit entries.
type ActionType string

const (
	ActionDocumentUploaded    ActionType = "document_uploaded"
	ActionValidationPerformed ActionType = "validation_performed"
	ActionStatusChanged       ActionType = "status_changed"
	ActionDecisionMade        ActionType = "decision_made"
	ActionStepStalled         ActionType = "step_stalled"
)

// ActorType identifies who performed the recorded action.
type ActorType string

const (
	ActorSystem   ActorType = "system"
	ActorAdmin    ActorType = "admin"
	ActorProvider ActorType = "provider"
)

// Payload is a structured snapshot attached to an entry. Exactly the fields
// relevant to the action type are populated.
type Payload struct {
	// Validation outcome snapshot (validation_performed).
	OutcomeKind   models.OutcomeKind   `json:"outcome_kind,omitempty"`
	OutcomeStatus models.OutcomeStatus `json:"outcome_status,omitempty"`
	OutcomeScore  float64              `json:"outcome_score,omitempty"`
	OutcomeSource models.OutcomeSource `json:"outcome_source,omitempty"`

	// Step movement snapshot (status_changed, step_stalled).
	FromStep models.Step `json:"from_step,omitempty"`
	ToStep   models.Step `json:"to_step,omitempty"`

	// Decision snapshot (decision_made).
	Decision models.Decision `json:"decision,omitempty"`

	// Document snapshot (document_uploaded).
	DocumentKind models.DocumentKind `json:"document_kind,omitempty"`
}

// Entry is one immutable audit record. Seq is assigned by the store and is
// monotonic per provider.
type Entry struct {
	ProviderID      id.ProviderID
	Seq             int64
	ActionType      ActionType
	PerformedByType ActorType
	PerformedBy     string // admin/provider identifier; empty for system
	Payload         Payload
	Notes           string
	CreatedAt       time.Time
}
