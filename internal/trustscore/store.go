package trustscore

import (
	"context"

	id "confia/pkg/domain"
)

// Store persists the latest score per provider. No history is kept here; the
// verification history log already captures every outcome that fed a score.
type Store interface {
	// Upsert replaces the provider's record with the latest computation.
	Upsert(ctx context.Context, record Record) error

	// Get returns the latest record, or sentinel.ErrNotFound when the
	// provider has never been scored.
	Get(ctx context.Context, providerID id.ProviderID) (*Record, error)
}
