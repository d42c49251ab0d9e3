// Package memory is the in-memory document inventory.
package memory

import (
	"context"
	"sync"

	id "confia/pkg/domain"

	"confia/internal/verification/models"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	uploaded map[id.ProviderID]map[models.DocumentKind]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{uploaded: make(map[id.ProviderID]map[models.DocumentKind]struct{})}
}

func (s *InMemoryStore) RecordUpload(_ context.Context, providerID id.ProviderID, kind models.DocumentKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploaded[providerID] == nil {
		s.uploaded[providerID] = make(map[models.DocumentKind]struct{})
	}
	s.uploaded[providerID][kind] = struct{}{}
	return nil
}

func (s *InMemoryStore) ListUploadedKinds(_ context.Context, providerID id.ProviderID) ([]models.DocumentKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make([]models.DocumentKind, 0, len(s.uploaded[providerID]))
	for kind := range s.uploaded[providerID] {
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
