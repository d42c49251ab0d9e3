package history

import (
	"context"
	"time"

	id "confia/pkg/domain"
)

// Store persists entries. Implementations are append-only; there is no
// update or delete surface to misuse.
type Store interface {
	// Append persists the entry and assigns its per-provider sequence number.
	Append(ctx context.Context, entry Entry) error

	// ListByProvider returns all entries for a provider ordered by sequence.
	ListByProvider(ctx context.Context, providerID id.ProviderID) ([]Entry, error)
}

// Recorder is the write surface handed to the orchestrator. It stamps
// timestamps and shields callers from the store interface.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends an entry, stamping CreatedAt when unset.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.store.Append(ctx, entry)
}

// List returns the ordered audit trail for a provider.
func (r *Recorder) List(ctx context.Context, providerID id.ProviderID) ([]Entry, error) {
	return r.store.ListByProvider(ctx, providerID)
}
