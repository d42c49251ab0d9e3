package service

import (
	"context"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"
	"confia/pkg/requestcontext"

	"confia/internal/trustscore"
	"confia/internal/verification/models"
)

// recomputeScore recalculates the trust score from the latest outcome of
// each kind plus the current marketplace profile snapshot, and persists it.
func (s *Service) recomputeScore(ctx context.Context, providerID id.ProviderID) error {
	outcomes, err := s.store.ListOutcomes(ctx, providerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load outcomes for scoring")
	}

	// Outcomes arrive in observation order; the last of each kind wins.
	latest := make(map[models.OutcomeKind]models.ValidationOutcome, 3)
	for _, outcome := range outcomes {
		latest[outcome.Kind] = outcome
	}

	snapshot, err := s.profiles.Snapshot(ctx, providerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile snapshot")
	}

	facts := trustscore.Facts{
		ProfileCompleteness: snapshot.Completeness,
		ReviewCount:         snapshot.ReviewCount,
		AverageRating:       snapshot.AverageRating,
		CertificationCount:  snapshot.CertificationCount,
	}
	if outcome, ok := latest[models.KindRUTIdentity]; ok {
		facts.RUTOutcome = &outcome
	}
	if outcome, ok := latest[models.KindBackgroundCheck]; ok {
		facts.BackgroundOutcome = &outcome
	}
	if outcome, ok := latest[models.KindBiometricMatch]; ok {
		facts.BiometricOutcome = &outcome
	}

	record := trustscore.Calculate(providerID, facts, s.weights, requestcontext.Now(ctx))
	if err := s.scores.Upsert(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist trust score")
	}
	return nil
}
