// Package rut implements the Chilean RUT identity validator. Every variant
// runs the local modulo-11 checksum before any external call: a locally
// invalid identifier short-circuits with source=local_validation, which both
// saves external-API quota and satisfies the regulator's layered-validation
// expectation.
package rut

import (
	"context"
	"strconv"
	"strings"

	id "confia/pkg/domain"

	"confia/internal/validators"
	"confia/internal/verification/models"
)

// Normalize strips dots and whitespace and upper-cases the check digit,
// returning body and check digit. ok is false when the shape is not
// body-dash-digit.
func Normalize(raw string) (body, dv string, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")

	idx := strings.LastIndex(s, "-")
	if idx <= 0 || idx != len(s)-2 {
		return "", "", false
	}
	body, dv = s[:idx], s[idx+1:]
	if len(body) < 7 || len(body) > 8 {
		return "", "", false
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}
	if dv != "K" && (dv < "0" || dv > "9") {
		return "", "", false
	}
	return body, dv, true
}

// CheckDigit computes the modulo-11 check digit for a numeric RUT body.
// The algorithm multiplies digits right-to-left by the cycle 2..7.
func CheckDigit(body string) string {
	sum := 0
	factor := 2
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		sum += d * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch rem := 11 - sum%11; rem {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(rem)
	}
}

// Valid reports whether raw is a well-formed RUT with a correct check digit.
func Valid(raw string) bool {
	body, dv, ok := Normalize(raw)
	if !ok {
		return false
	}
	return CheckDigit(body) == dv
}

// lookupFunc resolves a checksum-valid RUT against an authority.
type lookupFunc func(ctx context.Context, providerID id.ProviderID, body string) (models.OutcomeStatus, error)

// Validator is the RUT identity validator. The local checksum gate is part of
// this type, not the delegates, so no variant can bypass it.
type Validator struct {
	source models.OutcomeSource
	lookup lookupFunc
}

func (v *Validator) Kind() models.OutcomeKind     { return models.KindRUTIdentity }
func (v *Validator) Source() models.OutcomeSource { return v.source }

func (v *Validator) Validate(ctx context.Context, providerID id.ProviderID, subject string) (*models.ValidationOutcome, error) {
	body, dv, ok := Normalize(subject)
	if !ok || CheckDigit(body) != dv {
		// Hard precondition: never consult the external authority for a
		// locally invalid identifier.
		return &models.ValidationOutcome{
			Kind:   models.KindRUTIdentity,
			Status: models.StatusInvalid,
			Source: models.SourceLocalValidation,
		}, nil
	}

	status, err := v.lookup(ctx, providerID, body)
	if err != nil {
		return nil, err
	}
	return &models.ValidationOutcome{
		Kind:   models.KindRUTIdentity,
		Status: status,
		Source: v.source,
	}, nil
}

var _ validators.Validator = (*Validator)(nil)
