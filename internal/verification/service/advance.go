package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"
	"confia/pkg/requestcontext"

	"confia/internal/history"
	"confia/internal/notification"
	"confia/internal/verification/models"
	"confia/internal/verification/workflow"
)

// stepChecks maps automated workflow steps to the validator kind they run.
var stepChecks = map[models.Step]models.OutcomeKind{
	models.StepRUTValidation:        models.KindRUTIdentity,
	models.StepBackgroundCheck:      models.KindBackgroundCheck,
	models.StepIdentityVerification: models.KindBiometricMatch,
}

// Advance drives the workflow as far as it can go in one call: it runs
// validators for automated steps and applies transitions until the workflow
// reaches manual review, a terminal step, or a step that cannot progress
// (missing documents, validator error). Calling Advance on a held workflow
// is a no-op that returns the current state.
func (s *Service) Advance(ctx context.Context, providerID id.ProviderID) (*models.ProviderVerification, error) {
	ctx, span := tracer.Start(ctx, "verification.Advance")
	defer span.End()

	started := time.Now()
	defer func() {
		s.metrics.ObserveAdvanceLatency(time.Since(started))
	}()

	unlock := s.lockProvider(providerID)
	defer unlock()

	verification, err := s.loadVerification(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if verification.CurrentStep.IsTerminal() {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "verification already %s", verification.CurrentStep)
	}

	// One hop per workflow step is possible in a single call, plus slack for
	// the manual-review detour. The guard catches state machine bugs.
	for hops := 0; hops < 10; hops++ {
		switch current := verification.CurrentStep; current {
		case models.StepDocumentsUpload:
			moved, err := s.advanceDocuments(ctx, verification)
			if err != nil {
				return nil, err
			}
			if !moved {
				return verification, nil
			}

		case models.StepBackgroundCheck:
			if s.policy.SpeculativeChecks {
				moved, err := s.advanceSpeculative(ctx, verification)
				if err != nil {
					return nil, err
				}
				if !moved {
					return verification, nil
				}
				continue
			}
			fallthrough
		case models.StepRUTValidation, models.StepIdentityVerification:
			moved, err := s.advanceCheck(ctx, verification, stepChecks[current])
			if err != nil {
				return nil, err
			}
			if !moved {
				return verification, nil
			}

		case models.StepManualReview:
			// Only an explicit admin decision exits manual review.
			return verification, nil

		case models.StepFinalApproval:
			transition, err := workflow.Next(s.policy, current, workflow.Input{})
			if err != nil {
				return nil, err
			}
			if err := s.applyTransition(ctx, verification, transition, systemActor()); err != nil {
				return nil, err
			}

		default:
			return nil, dErrors.Newf(dErrors.CodeInternal, "advance reached unexpected step %q", current)
		}

		if verification.CurrentStep.IsTerminal() {
			return verification, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeInternal, "advance did not converge")
}

// advanceDocuments evaluates the document gate. A workflow that cannot move
// because documents are missing is marked stalled exactly once: the flag
// flip, the audit entry and the resubmission notification all happen on the
// first stalled Advance, later calls just report the unchanged state.
func (s *Service) advanceDocuments(ctx context.Context, verification *models.ProviderVerification) (bool, error) {
	kinds, err := s.documents.ListUploadedKinds(ctx, verification.ProviderID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	uploaded := make(map[models.DocumentKind]bool, len(kinds))
	for _, kind := range kinds {
		uploaded[kind] = true
	}

	transition, err := workflow.Next(s.policy, verification.CurrentStep, workflow.Input{Documents: uploaded})
	if err != nil {
		return false, err
	}
	if !transition.Moved(verification.CurrentStep) {
		stalled, err := s.markStalled(ctx, verification, "required documents missing")
		if err != nil {
			return false, err
		}
		if stalled {
			s.publisher.Publish(ctx, notification.Event{
				ProviderID: verification.ProviderID,
				Type:       notification.EventResubmissionRequired,
				OccurredAt: requestcontext.Now(ctx),
			})
		}
		return false, nil
	}
	return true, s.applyTransition(ctx, verification, transition, systemActor())
}

// markStalled flags a workflow that cannot progress automatically. It fires
// at most once per stall: the flag flip, the audit entry and the persist all
// happen on the first held Advance, later calls are no-ops. Returns whether
// this call did the marking.
func (s *Service) markStalled(ctx context.Context, verification *models.ProviderVerification, notes string) (bool, error) {
	if !verification.AutoVerificationPossible {
		return false, nil
	}
	verification.AutoVerificationPossible = false
	if err := s.recorder.Record(ctx, history.Entry{
		ProviderID:      verification.ProviderID,
		ActionType:      history.ActionStepStalled,
		PerformedByType: history.ActorSystem,
		Payload: history.Payload{
			FromStep: verification.CurrentStep,
			ToStep:   verification.CurrentStep,
		},
		Notes:     notes,
		CreatedAt: requestcontext.Now(ctx),
	}); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit stall")
	}
	if err := s.persist(ctx, verification); err != nil {
		return false, err
	}
	s.metrics.IncrementStall(string(verification.CurrentStep))
	return true, nil
}

// advanceCheck runs one validator and applies the resulting transition. An
// error outcome holds the step; the caller may Advance again later.
func (s *Service) advanceCheck(ctx context.Context, verification *models.ProviderVerification, kind models.OutcomeKind) (bool, error) {
	outcome := s.callValidator(ctx, verification, kind)
	if err := s.recordOutcome(ctx, verification.ProviderID, outcome); err != nil {
		return false, err
	}

	transition, err := workflow.Next(s.policy, verification.CurrentStep, workflow.Input{Outcome: outcome})
	if err != nil {
		return false, err
	}
	if !transition.Moved(verification.CurrentStep) {
		// A held step with an error outcome means retries were exhausted;
		// the case now waits for manual follow-up or a later Advance.
		if outcome.Status == models.StatusError {
			if _, err := s.markStalled(ctx, verification, "validator retries exhausted"); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	return true, s.applyTransition(ctx, verification, transition, systemActor())
}

// advanceSpeculative runs the background check and the biometric match
// concurrently, betting that the background check comes back clean. Both
// outcomes are recorded in validator-kind priority order regardless of which
// finished first, so the audit trail stays deterministic. If the bet loses
// the speculative biometric outcome is still recorded but drives nothing.
func (s *Service) advanceSpeculative(ctx context.Context, verification *models.ProviderVerification) (bool, error) {
	var background, biometric *models.ValidationOutcome

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		background = s.callValidator(gctx, verification, models.KindBackgroundCheck)
		return nil
	})
	g.Go(func() error {
		biometric = s.callValidator(gctx, verification, models.KindBiometricMatch)
		return nil
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, outcome := range []*models.ValidationOutcome{background, biometric} {
		if err := s.recordOutcome(ctx, verification.ProviderID, outcome); err != nil {
			return false, err
		}
	}

	transition, err := workflow.Next(s.policy, verification.CurrentStep, workflow.Input{Outcome: background})
	if err != nil {
		return false, err
	}
	if !transition.Moved(verification.CurrentStep) {
		if background.Status == models.StatusError {
			if _, err := s.markStalled(ctx, verification, "validator retries exhausted"); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if err := s.applyTransition(ctx, verification, transition, systemActor()); err != nil {
		return false, err
	}
	if verification.CurrentStep != models.StepIdentityVerification {
		return true, nil
	}

	transition, err = workflow.Next(s.policy, verification.CurrentStep, workflow.Input{Outcome: biometric})
	if err != nil {
		return false, err
	}
	if !transition.Moved(verification.CurrentStep) {
		if biometric.Status == models.StatusError {
			if _, err := s.markStalled(ctx, verification, "validator retries exhausted"); err != nil {
				return false, err
			}
		}
		// The biometric evaluation already ran and held. Reporting progress
		// here would send the loop through advanceCheck and run the same
		// validator a second time in this call.
		return false, nil
	}
	return true, s.applyTransition(ctx, verification, transition, systemActor())
}

// callValidator invokes the retry-wrapped validator for a kind. Exhausted or
// non-retryable failures become an error outcome rather than an error: the
// failure is a fact worth recording, not a reason to lose workflow state.
func (s *Service) callValidator(ctx context.Context, verification *models.ProviderVerification, kind models.OutcomeKind) *models.ValidationOutcome {
	check := s.checks[kind]

	started := time.Now()
	outcome, err := check.Validate(ctx, verification.ProviderID, verification.RUT)
	if err != nil {
		s.logger.WarnContext(ctx, "validator failed",
			"provider_id", verification.ProviderID,
			"kind", kind,
			"error", err,
		)
		outcome = &models.ValidationOutcome{
			Kind:       kind,
			Status:     models.StatusError,
			Source:     check.Source(),
			ObservedAt: requestcontext.Now(ctx),
		}
	}
	if outcome.ObservedAt.IsZero() {
		outcome.ObservedAt = requestcontext.Now(ctx)
	}
	s.metrics.ObserveValidatorLatency(string(kind), string(outcome.Source), time.Since(started))
	return outcome
}

// recordOutcome audits and persists a validator outcome, then recomputes the
// trust score so it reflects every observation immediately.
func (s *Service) recordOutcome(ctx context.Context, providerID id.ProviderID, outcome *models.ValidationOutcome) error {
	if err := s.recorder.Record(ctx, history.Entry{
		ProviderID:      providerID,
		ActionType:      history.ActionValidationPerformed,
		PerformedByType: history.ActorSystem,
		Payload: history.Payload{
			OutcomeKind:   outcome.Kind,
			OutcomeStatus: outcome.Status,
			OutcomeScore:  outcome.Score,
			OutcomeSource: outcome.Source,
		},
		CreatedAt: outcome.ObservedAt,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit outcome")
	}
	if err := s.store.SaveOutcome(ctx, providerID, *outcome); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save outcome")
	}
	s.metrics.IncrementOutcome(string(outcome.Kind), string(outcome.Status))
	return s.recomputeScore(ctx, providerID)
}

// actor identifies who caused a transition for audit attribution.
type actor struct {
	actorType history.ActorType
	actorID   string
	notes     string
}

func systemActor() actor {
	return actor{actorType: history.ActorSystem}
}

// applyTransition audits, applies and persists one state machine transition.
// The status_changed entry is written before the in-memory mutation so a
// persistence failure leaves the log ahead of the state, never behind it.
func (s *Service) applyTransition(ctx context.Context, verification *models.ProviderVerification, transition workflow.Transition, by actor) error {
	from := verification.CurrentStep
	now := requestcontext.Now(ctx)

	if err := s.recorder.Record(ctx, history.Entry{
		ProviderID:      verification.ProviderID,
		ActionType:      history.ActionStatusChanged,
		PerformedByType: by.actorType,
		PerformedBy:     by.actorID,
		Payload: history.Payload{
			FromStep: from,
			ToStep:   transition.Next,
		},
		Notes:     by.notes,
		CreatedAt: now,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit transition")
	}

	if transition.Satisfied != "" {
		verification.MarkCompleted(transition.Satisfied)
	}
	verification.CurrentStep = transition.Next
	if transition.RequiresManualReview {
		verification.AutoVerificationPossible = false
		s.metrics.AdjustManualReviewQueue(1)
	}
	if from == models.StepManualReview {
		s.metrics.AdjustManualReviewQueue(-1)
	}
	s.metrics.IncrementTransition(string(from), string(transition.Next))

	if transition.Next.IsTerminal() {
		if err := verification.Finalize(transition.Decision, now); err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, history.Entry{
			ProviderID:      verification.ProviderID,
			ActionType:      history.ActionDecisionMade,
			PerformedByType: by.actorType,
			PerformedBy:     by.actorID,
			Payload:         history.Payload{Decision: transition.Decision},
			Notes:           by.notes,
			CreatedAt:       now,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit decision")
		}
		s.metrics.IncrementDecision(string(transition.Decision))
	}

	if err := s.persist(ctx, verification); err != nil {
		return err
	}

	if event, ok := transitionEvent(from, transition.Next); ok {
		s.publisher.Publish(ctx, notification.Event{
			ProviderID: verification.ProviderID,
			Type:       event,
			OccurredAt: now,
		})
	}

	s.logger.InfoContext(ctx, "verification step changed",
		"provider_id", verification.ProviderID,
		"from", from,
		"to", transition.Next,
	)
	return nil
}

func (s *Service) persist(ctx context.Context, verification *models.ProviderVerification) error {
	if err := verification.CheckInvariants(); err != nil {
		return err
	}
	if err := s.store.UpdateVerification(ctx, verification); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist verification")
	}
	return nil
}

// transitionEvent maps a step transition to the provider-facing notification
// it triggers, if any.
func transitionEvent(from, to models.Step) (notification.EventType, bool) {
	switch {
	case from == models.StepDocumentsUpload && to == models.StepRUTValidation:
		return notification.EventDocumentsReceived, true
	case to == models.StepManualReview:
		return notification.EventUnderReview, true
	case to == models.StepCompleted:
		return notification.EventApproved, true
	case to == models.StepRejected:
		return notification.EventRejected, true
	}
	return "", false
}
