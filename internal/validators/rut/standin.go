package rut

import (
	"context"

	id "confia/pkg/domain"

	"confia/internal/verification/models"
)

// NewStandIn returns the deterministic offline RUT validator used when no
// live registry credential is configured. Classification depends only on the
// RUT body so tests and demo environments are reproducible:
//
//	body ending in "00" -> not_found
//	body ending in "99" -> invalid (registry disagrees despite valid checksum)
//	anything else       -> valid
func NewStandIn() *Validator {
	return &Validator{
		source: models.SourceStandIn,
		lookup: func(_ context.Context, _ id.ProviderID, body string) (models.OutcomeStatus, error) {
			switch {
			case len(body) >= 2 && body[len(body)-2:] == "00":
				return models.StatusNotFound, nil
			case len(body) >= 2 && body[len(body)-2:] == "99":
				return models.StatusInvalid, nil
			default:
				return models.StatusValid, nil
			}
		},
	}
}
