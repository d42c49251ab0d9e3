// Package memory is the in-memory history store used by tests and the
// single-node development server.
package memory

import (
	"context"
	"sync"

	"confia/internal/history"
	id "confia/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.ProviderID][]history.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.ProviderID][]history.Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Seq = int64(len(s.entries[entry.ProviderID])) + 1
	s.entries[entry.ProviderID] = append(s.entries[entry.ProviderID], entry)
	return nil
}

func (s *InMemoryStore) ListByProvider(_ context.Context, providerID id.ProviderID) ([]history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[providerID]
	out := make([]history.Entry, len(stored))
	copy(out, stored)
	return out, nil
}
