// Package workflow implements the verification state machine as pure
// functions. It never touches stores or validators; the orchestrator feeds it
// observed outcomes and applies the transitions it returns.
package workflow

import (
	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"

	"confia/internal/verification/models"
)

// Policy holds the tunable transition rules. Weights live in trustscore; this
// only covers step routing.
type Policy struct {
	// BiometricThreshold is the minimum match score that advances
	// identity_verification to final_approval.
	BiometricThreshold float64

	// RUTInvalidManualReview routes a failed government identity check to
	// manual_review instead of rejecting outright. The default policy keeps
	// the hard reject; product has not confirmed the asymmetry with the
	// background-check flagged path.
	RUTInvalidManualReview bool

	// RequiredDocuments gates the documents_upload step.
	RequiredDocuments []models.DocumentKind

	// SpeculativeChecks lets the orchestrator start the biometric check while
	// the background check is still in flight. Outcomes still apply in
	// validator-kind priority order.
	SpeculativeChecks bool
}

// DefaultPolicy mirrors production behavior.
func DefaultPolicy() Policy {
	return Policy{
		BiometricThreshold: 0.85,
		RequiredDocuments:  models.RequiredDocuments(),
	}
}

// ManualDecision is an explicit admin decision, the only input that can move
// a workflow out of manual_review.
type ManualDecision struct {
	Decision models.Decision
	AdminID  id.AdminID
	Notes    string
}

// Input carries everything the state machine may consult for one transition.
// Only the field relevant to the current step is read.
type Input struct {
	// Documents lists the uploaded document kinds (documents_upload only).
	Documents map[models.DocumentKind]bool

	// Outcome is the latest validator outcome for the current step.
	Outcome *models.ValidationOutcome

	// Manual is an admin decision (manual_review only).
	Manual *ManualDecision
}

// Transition describes the result of one state machine evaluation.
type Transition struct {
	Next                 models.Step
	RequiresManualReview bool

	// Decision is set when Next is terminal.
	Decision models.Decision

	// Satisfied names the step credited to StepsCompleted by this transition.
	// Empty when the workflow does not move.
	Satisfied models.Step
}

// Moved reports whether the transition changes the current step.
func (t Transition) Moved(current models.Step) bool {
	return t.Next != current
}

// Next computes the transition for the current step given the input. A
// validator error outcome never advances the step and never counts as a
// negative classification; the orchestrator retries per its policy.
func Next(policy Policy, current models.Step, in Input) (Transition, error) {
	if current.IsTerminal() {
		return Transition{}, dErrors.Newf(dErrors.CodeInvalidState, "no transition leaves terminal step %s", current)
	}

	switch current {
	case models.StepDocumentsUpload:
		return nextFromDocuments(policy, in), nil
	case models.StepRUTValidation:
		return nextFromRUT(policy, in), nil
	case models.StepBackgroundCheck:
		return nextFromBackground(in), nil
	case models.StepIdentityVerification:
		return nextFromBiometric(policy, in), nil
	case models.StepManualReview:
		return nextFromManualReview(in)
	case models.StepFinalApproval:
		// Unconditional advance once reached; no further automated checks.
		return Transition{
			Next:      models.StepCompleted,
			Decision:  models.DecisionApproved,
			Satisfied: models.StepFinalApproval,
		}, nil
	default:
		return Transition{}, dErrors.Newf(dErrors.CodeInvalidState, "unknown step %q", current)
	}
}

func stay(current models.Step) Transition {
	return Transition{Next: current}
}

func nextFromDocuments(policy Policy, in Input) Transition {
	for _, kind := range policy.RequiredDocuments {
		if !in.Documents[kind] {
			return stay(models.StepDocumentsUpload)
		}
	}
	return Transition{
		Next:      models.StepRUTValidation,
		Satisfied: models.StepDocumentsUpload,
	}
}

func nextFromRUT(policy Policy, in Input) Transition {
	if in.Outcome == nil || in.Outcome.Kind != models.KindRUTIdentity {
		return stay(models.StepRUTValidation)
	}
	switch in.Outcome.Status {
	case models.StatusValid:
		return Transition{
			Next:      models.StepBackgroundCheck,
			Satisfied: models.StepRUTValidation,
		}
	case models.StatusInvalid, models.StatusNotFound:
		if policy.RUTInvalidManualReview {
			return Transition{
				Next:                 models.StepManualReview,
				RequiresManualReview: true,
				Satisfied:            models.StepRUTValidation,
			}
		}
		return Transition{
			Next:      models.StepRejected,
			Decision:  models.DecisionRejected,
			Satisfied: models.StepRUTValidation,
		}
	default:
		// error or unexpected status: retryable, do not advance
		return stay(models.StepRUTValidation)
	}
}

func nextFromBackground(in Input) Transition {
	if in.Outcome == nil || in.Outcome.Kind != models.KindBackgroundCheck {
		return stay(models.StepBackgroundCheck)
	}
	switch in.Outcome.Status {
	case models.StatusClean:
		return Transition{
			Next:      models.StepIdentityVerification,
			Satisfied: models.StepBackgroundCheck,
		}
	case models.StatusFlagged:
		// Partial credit: a flag warrants human judgment, not rejection.
		return Transition{
			Next:                 models.StepManualReview,
			RequiresManualReview: true,
			Satisfied:            models.StepBackgroundCheck,
		}
	case models.StatusCriminalRecord:
		return Transition{
			Next:      models.StepRejected,
			Decision:  models.DecisionRejected,
			Satisfied: models.StepBackgroundCheck,
		}
	default:
		return stay(models.StepBackgroundCheck)
	}
}

func nextFromBiometric(policy Policy, in Input) Transition {
	if in.Outcome == nil || in.Outcome.Kind != models.KindBiometricMatch {
		return stay(models.StepIdentityVerification)
	}
	switch in.Outcome.Status {
	case models.StatusMatch, models.StatusNoMatch:
		if in.Outcome.Score >= policy.BiometricThreshold {
			return Transition{
				Next:      models.StepFinalApproval,
				Satisfied: models.StepIdentityVerification,
			}
		}
		return Transition{
			Next:                 models.StepManualReview,
			RequiresManualReview: true,
			Satisfied:            models.StepIdentityVerification,
		}
	default:
		return stay(models.StepIdentityVerification)
	}
}

func nextFromManualReview(in Input) (Transition, error) {
	if in.Manual == nil {
		// Automated outcomes can never exit manual review.
		return stay(models.StepManualReview), nil
	}
	switch in.Manual.Decision {
	case models.DecisionApproved:
		return Transition{
			Next:      models.StepFinalApproval,
			Satisfied: models.StepManualReview,
		}, nil
	case models.DecisionRejected:
		return Transition{
			Next:      models.StepRejected,
			Decision:  models.DecisionRejected,
			Satisfied: models.StepManualReview,
		}, nil
	default:
		return Transition{}, dErrors.Newf(dErrors.CodeInvalidInput, "manual decision must be approved or rejected, got %q", in.Manual.Decision)
	}
}
