package history

import (
	dErrors "confia/pkg/domain-errors"

	"confia/internal/verification/models"
)

// ReplayedState is the workflow position reconstructed from audit entries.
type ReplayedState struct {
	CurrentStep    models.Step
	StepsCompleted []models.Step
	FinalDecision  models.Decision
}

// Replay re-derives the workflow state from an ordered entry sequence. Audits
// use this to confirm the materialized record matches the log; tests use it
// to assert the reconstructability invariant.
func Replay(entries []Entry) (*ReplayedState, error) {
	state := &ReplayedState{
		CurrentStep:   models.StepDocumentsUpload,
		FinalDecision: models.DecisionPending,
	}

	for _, entry := range entries {
		switch entry.ActionType {
		case ActionStatusChanged:
			if entry.Payload.FromStep != state.CurrentStep {
				return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
					"entry %d moves from %q but replayed step is %q",
					entry.Seq, entry.Payload.FromStep, state.CurrentStep)
			}
			if entry.Payload.FromStep != entry.Payload.ToStep {
				state.StepsCompleted = appendUnique(state.StepsCompleted, entry.Payload.FromStep)
			}
			state.CurrentStep = entry.Payload.ToStep
		case ActionDecisionMade:
			state.FinalDecision = entry.Payload.Decision
		}
	}

	return state, nil
}

func appendUnique(steps []models.Step, step models.Step) []models.Step {
	for _, s := range steps {
		if s == step {
			return steps
		}
	}
	return append(steps, step)
}
