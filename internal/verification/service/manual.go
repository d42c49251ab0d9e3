package service

import (
	"context"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"

	"confia/internal/history"
	"confia/internal/verification/models"
	"confia/internal/verification/workflow"
)

// RecordManualDecision applies an admin's review decision. It is the only
// way a workflow leaves manual_review: approval resumes the flow through
// final approval to completion, rejection terminates it. The admin is
// attributed on every audit entry the decision produces.
func (s *Service) RecordManualDecision(ctx context.Context, providerID id.ProviderID, decision workflow.ManualDecision) (*models.ProviderVerification, error) {
	ctx, span := tracer.Start(ctx, "verification.RecordManualDecision")
	defer span.End()

	if decision.AdminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "admin_id is required")
	}

	unlock := s.lockProvider(providerID)
	defer unlock()

	verification, err := s.loadVerification(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if verification.CurrentStep != models.StepManualReview {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"manual decision requires manual_review, verification is at %s", verification.CurrentStep)
	}

	transition, err := workflow.Next(s.policy, verification.CurrentStep, workflow.Input{Manual: &decision})
	if err != nil {
		return nil, err
	}

	by := actor{
		actorType: history.ActorAdmin,
		actorID:   decision.AdminID.String(),
		notes:     decision.Notes,
	}
	if err := s.applyTransition(ctx, verification, transition, by); err != nil {
		return nil, err
	}

	// An approval lands on final_approval; follow through to completion so
	// the admin's single action fully settles the workflow.
	if verification.CurrentStep == models.StepFinalApproval {
		transition, err := workflow.Next(s.policy, verification.CurrentStep, workflow.Input{})
		if err != nil {
			return nil, err
		}
		if err := s.applyTransition(ctx, verification, transition, by); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "manual decision recorded",
		"provider_id", providerID,
		"admin_id", decision.AdminID,
		"decision", decision.Decision,
	)
	return verification, nil
}
