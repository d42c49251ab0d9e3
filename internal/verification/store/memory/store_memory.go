// Package memory is the in-memory verification store used by tests and the
// single-node development server.
package memory

import (
	"context"
	"sort"
	"sync"

	id "confia/pkg/domain"
	"confia/pkg/platform/sentinel"

	"confia/internal/verification/models"
)

type InMemoryStore struct {
	mu            sync.RWMutex
	verifications map[id.ProviderID]*models.ProviderVerification
	outcomes      map[id.ProviderID][]models.ValidationOutcome
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		verifications: make(map[id.ProviderID]*models.ProviderVerification),
		outcomes:      make(map[id.ProviderID][]models.ValidationOutcome),
	}
}

func (s *InMemoryStore) CreateVerification(_ context.Context, verification *models.ProviderVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.verifications[verification.ProviderID]; exists {
		return sentinel.ErrConflict
	}
	s.verifications[verification.ProviderID] = verification.Clone()
	return nil
}

func (s *InMemoryStore) GetVerification(_ context.Context, providerID id.ProviderID) (*models.ProviderVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	verification, ok := s.verifications[providerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return verification.Clone(), nil
}

func (s *InMemoryStore) UpdateVerification(_ context.Context, verification *models.ProviderVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.verifications[verification.ProviderID]; !ok {
		return sentinel.ErrNotFound
	}
	s.verifications[verification.ProviderID] = verification.Clone()
	return nil
}

func (s *InMemoryStore) SaveOutcome(_ context.Context, providerID id.ProviderID, outcome models.ValidationOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes[providerID] = append(s.outcomes[providerID], outcome)
	return nil
}

// ListOutcomes returns all recorded outcomes for the provider ordered by
// observation time.
func (s *InMemoryStore) ListOutcomes(_ context.Context, providerID id.ProviderID) ([]models.ValidationOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.outcomes[providerID]
	out := make([]models.ValidationOutcome, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ObservedAt.Before(out[j].ObservedAt)
	})
	return out, nil
}
