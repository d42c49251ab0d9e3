// Package validators defines the common contract for verification checks.
// Each check (RUT identity, background, biometric) ships in two variants: a
// live integration and a deterministic stand-in used when no credential is
// configured. Selection happens once at startup; the orchestrator only sees
// the Validator interface.
package validators

import (
	"context"
	"fmt"

	id "confia/pkg/domain"

	"confia/internal/verification/models"
)

// Validator is the universal interface all verification checks implement.
type Validator interface {
	// Kind returns which verification check this validator performs.
	Kind() models.OutcomeKind

	// Source identifies the concrete variant (live or stand-in).
	Source() models.OutcomeSource

	// Validate runs the check for a provider's subject identifier and returns
	// a terminal classification. Transient failures return a *ProviderError
	// with Retryable set; they are never encoded as negative outcomes.
	Validate(ctx context.Context, providerID id.ProviderID, subject string) (*models.ValidationOutcome, error)
}

// Registry maps outcome kinds to their selected validator variant.
type Registry struct {
	validators map[models.OutcomeKind]Validator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[models.OutcomeKind]Validator)}
}

// Register adds a validator. Registering the same kind twice is a wiring bug.
func (r *Registry) Register(v Validator) error {
	kind := v.Kind()
	if _, exists := r.validators[kind]; exists {
		return fmt.Errorf("validator for %s already registered", kind)
	}
	r.validators[kind] = v
	return nil
}

// Get retrieves the validator for a kind.
func (r *Registry) Get(kind models.OutcomeKind) (Validator, bool) {
	v, ok := r.validators[kind]
	return v, ok
}

// All returns the registered validators.
func (r *Registry) All() []Validator {
	result := make([]Validator, 0, len(r.validators))
	for _, v := range r.validators {
		result = append(result, v)
	}
	return result
}
