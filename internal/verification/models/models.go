// Package models defines the verification workflow domain types. The workflow
// package consumes these to compute transitions; stores persist them.
package models

import (
	"time"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"
)

// Step is one stage of the provider verification workflow.
type Step string

const (
	StepDocumentsUpload      Step = "documents_upload"
	StepRUTValidation        Step = "rut_validation"
	StepBackgroundCheck      Step = "background_check"
	StepIdentityVerification Step = "identity_verification"
	StepManualReview         Step = "manual_review"
	StepFinalApproval        Step = "final_approval"
	StepCompleted            Step = "completed"
	StepRejected             Step = "rejected"
)

// IsTerminal reports whether no transition may leave this step.
func (s Step) IsTerminal() bool {
	return s == StepCompleted || s == StepRejected
}

// Valid reports whether s is a known workflow step.
func (s Step) Valid() bool {
	switch s {
	case StepDocumentsUpload, StepRUTValidation, StepBackgroundCheck,
		StepIdentityVerification, StepManualReview, StepFinalApproval,
		StepCompleted, StepRejected:
		return true
	}
	return false
}

// Decision is the final outcome of a verification workflow.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// OutcomeKind identifies which verification check produced an outcome.
type OutcomeKind string

const (
	KindRUTIdentity     OutcomeKind = "rut_identity"
	KindBackgroundCheck OutcomeKind = "background_check"
	KindBiometricMatch  OutcomeKind = "biometric_match"
)

// Priority orders outcome kinds for deterministic application when checks run
// concurrently. Lower applies first.
func (k OutcomeKind) Priority() int {
	switch k {
	case KindRUTIdentity:
		return 0
	case KindBackgroundCheck:
		return 1
	case KindBiometricMatch:
		return 2
	}
	return 99
}

// OutcomeStatus is the terminal classification of one validator call.
type OutcomeStatus string

const (
	// RUT identity classifications.
	StatusValid    OutcomeStatus = "valid"
	StatusInvalid  OutcomeStatus = "invalid"
	StatusNotFound OutcomeStatus = "not_found"

	// Background check classifications.
	StatusClean          OutcomeStatus = "clean"
	StatusFlagged        OutcomeStatus = "flagged"
	StatusCriminalRecord OutcomeStatus = "criminal_record"

	// Biometric classifications.
	StatusMatch   OutcomeStatus = "match"
	StatusNoMatch OutcomeStatus = "no_match"

	// StatusError marks a call that exhausted retries without a terminal
	// classification. It never advances the workflow.
	StatusError OutcomeStatus = "error"
)

// OutcomeSource identifies which concrete validator variant produced an
// outcome. Downstream trust scoring and audits must distinguish authoritative
// from provisional results, so the source is always recorded.
type OutcomeSource string

const (
	SourceLive            OutcomeSource = "live"
	SourceStandIn         OutcomeSource = "stand_in"
	SourceLocalValidation OutcomeSource = "local_validation"
)

// ValidationOutcome is the result of one validator provider invocation.
type ValidationOutcome struct {
	Kind       OutcomeKind
	Status     OutcomeStatus
	Score      float64 // biometric match score in [0,1]; zero otherwise
	Source     OutcomeSource
	ObservedAt time.Time
}

// DocumentKind is a kind of identity document uploaded by a provider.
type DocumentKind string

const (
	DocumentIDFront DocumentKind = "id_front"
	DocumentIDBack  DocumentKind = "id_back"
	DocumentSelfie  DocumentKind = "selfie"

	// Optional supporting documents; not part of the required set.
	DocumentCertificate    DocumentKind = "certificate"
	DocumentProofOfAddress DocumentKind = "proof_of_address"
)

func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentIDFront, DocumentIDBack, DocumentSelfie, DocumentCertificate, DocumentProofOfAddress:
		return true
	}
	return false
}

// RequiredDocuments is the minimum identity-document set gating the
// documents_upload step.
func RequiredDocuments() []DocumentKind {
	return []DocumentKind{DocumentIDFront, DocumentIDBack, DocumentSelfie}
}

// ProviderVerification is the materialized workflow state for one provider.
// The ordered history entries remain the source of truth for audit replay.
type ProviderVerification struct {
	ProviderID               id.ProviderID
	RUT                      string // subject national identifier, checksum-validated lazily
	CurrentStep              Step
	StepsCompleted           []Step
	FinalDecision            Decision
	// AutoVerificationPossible latches false the first time the workflow
	// needs outside intervention (manual review, missing documents,
	// exhausted validator retries) and is never set back.
	AutoVerificationPossible bool
	StartedAt                time.Time
	CompletedAt              *time.Time
}

// NewProviderVerification starts a workflow at documents_upload.
func NewProviderVerification(providerID id.ProviderID, rut string, now time.Time) (*ProviderVerification, error) {
	if providerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "provider_id is required")
	}
	return &ProviderVerification{
		ProviderID:               providerID,
		RUT:                      rut,
		CurrentStep:              StepDocumentsUpload,
		StepsCompleted:           []Step{},
		FinalDecision:            DecisionPending,
		AutoVerificationPossible: true,
		StartedAt:                now,
	}, nil
}

// MarkCompleted appends a step to StepsCompleted preserving insertion order.
// Duplicates are ignored; the set only ever grows.
func (v *ProviderVerification) MarkCompleted(step Step) {
	for _, s := range v.StepsCompleted {
		if s == step {
			return
		}
	}
	v.StepsCompleted = append(v.StepsCompleted, step)
}

// HasCompleted reports whether a step was already satisfied.
func (v *ProviderVerification) HasCompleted(step Step) bool {
	for _, s := range v.StepsCompleted {
		if s == step {
			return true
		}
	}
	return false
}

// Finalize records a terminal decision. It enforces the invariant that a
// non-pending decision coincides with a terminal step.
func (v *ProviderVerification) Finalize(decision Decision, now time.Time) error {
	if decision == DecisionPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot finalize with a pending decision")
	}
	if !v.CurrentStep.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot finalize while step is %s", v.CurrentStep)
	}
	v.FinalDecision = decision
	completed := now
	v.CompletedAt = &completed
	return nil
}

// CheckInvariants validates structural invariants; stores call this before
// persisting so a bug never writes an inconsistent row.
func (v *ProviderVerification) CheckInvariants() error {
	if !v.CurrentStep.Valid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown step %q", v.CurrentStep)
	}
	terminal := v.CurrentStep.IsTerminal()
	decided := v.FinalDecision != DecisionPending
	if terminal != decided {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"decision %q inconsistent with step %q", v.FinalDecision, v.CurrentStep)
	}
	if decided && v.CompletedAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "decided workflow missing completed_at")
	}
	seen := make(map[Step]bool, len(v.StepsCompleted))
	for _, s := range v.StepsCompleted {
		if seen[s] {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "duplicate completed step %q", s)
		}
		seen[s] = true
	}
	return nil
}

// Clone returns a deep copy so callers can hand out state without aliasing
// the slice backing StepsCompleted.
func (v *ProviderVerification) Clone() *ProviderVerification {
	cp := *v
	cp.StepsCompleted = append([]Step(nil), v.StepsCompleted...)
	if v.CompletedAt != nil {
		t := *v.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
