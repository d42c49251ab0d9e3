// Package background implements the criminal/civil background check
// validator. Unlike the RUT validator there is no local pre-check; both
// variants always delegate to their authority.
package background

import (
	"context"

	id "confia/pkg/domain"

	"confia/internal/validators"
	"confia/internal/verification/models"
)

type lookupFunc func(ctx context.Context, providerID id.ProviderID, subject string) (models.OutcomeStatus, error)

// Validator performs the background check through the configured variant.
type Validator struct {
	source models.OutcomeSource
	lookup lookupFunc
}

func (v *Validator) Kind() models.OutcomeKind     { return models.KindBackgroundCheck }
func (v *Validator) Source() models.OutcomeSource { return v.source }

func (v *Validator) Validate(ctx context.Context, providerID id.ProviderID, subject string) (*models.ValidationOutcome, error) {
	status, err := v.lookup(ctx, providerID, subject)
	if err != nil {
		return nil, err
	}
	return &models.ValidationOutcome{
		Kind:   models.KindBackgroundCheck,
		Status: status,
		Source: v.source,
	}, nil
}

var _ validators.Validator = (*Validator)(nil)

// NewStandIn returns the deterministic offline background check. The digit
// sum of the subject identifier selects the classification so fixtures can
// target each branch:
//
//	digit sum % 10 == 0 -> criminal_record
//	digit sum % 10 in {3, 4} -> flagged
//	anything else -> clean
func NewStandIn() *Validator {
	return &Validator{
		source: models.SourceStandIn,
		lookup: func(_ context.Context, _ id.ProviderID, subject string) (models.OutcomeStatus, error) {
			switch digitSum(subject) % 10 {
			case 0:
				return models.StatusCriminalRecord, nil
			case 3, 4:
				return models.StatusFlagged, nil
			default:
				return models.StatusClean, nil
			}
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
