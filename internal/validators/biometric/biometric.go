// Package biometric implements the face-match validator. The validator only
// reports the raw match score with a match/no_match classification at 0.5;
// the workflow applies its own configured approval threshold.
package biometric

import (
	"context"

	id "confia/pkg/domain"

	"confia/internal/validators"
	"confia/internal/verification/models"
)

type matchFunc func(ctx context.Context, providerID id.ProviderID, subject string) (float64, error)

// Validator performs the biometric face match through the configured variant.
type Validator struct {
	source models.OutcomeSource
	match  matchFunc
}

func (v *Validator) Kind() models.OutcomeKind     { return models.KindBiometricMatch }
func (v *Validator) Source() models.OutcomeSource { return v.source }

func (v *Validator) Validate(ctx context.Context, providerID id.ProviderID, subject string) (*models.ValidationOutcome, error) {
	score, err := v.match(ctx, providerID, subject)
	if err != nil {
		return nil, err
	}
	status := models.StatusMatch
	if score < 0.5 {
		status = models.StatusNoMatch
	}
	return &models.ValidationOutcome{
		Kind:   models.KindBiometricMatch,
		Status: status,
		Score:  score,
		Source: v.source,
	}, nil
}

var _ validators.Validator = (*Validator)(nil)

// NewStandIn returns the deterministic offline face matcher. The subject's
// digit sum selects between a strong and a weak match so fixtures can target
// the approval and the manual-review branch:
//
//	digit sum % 7 == 0 -> 0.64 (below the default 0.85 threshold)
//	anything else      -> 0.92
func NewStandIn() *Validator {
	return &Validator{
		source: models.SourceStandIn,
		match: func(_ context.Context, _ id.ProviderID, subject string) (float64, error) {
			if digitSum(subject)%7 == 0 {
				return 0.64, nil
			}
			return 0.92, nil
		},
	}
}

func digitSum(s string) int {
	sum := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sum += int(r - '0')
		}
	}
	return sum
}
