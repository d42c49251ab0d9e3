package memory

import (
	"context"
	"sync"

	id "confia/pkg/domain"
	"confia/pkg/platform/sentinel"

	"confia/internal/trustscore"
)

// InMemoryStore keeps the latest score per provider. Used in tests and when
// no database is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.ProviderID]trustscore.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.ProviderID]trustscore.Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, record trustscore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ProviderID] = cloneRecord(record)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, providerID id.ProviderID) (*trustscore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[providerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := cloneRecord(record)
	return &cp, nil
}

func cloneRecord(r trustscore.Record) trustscore.Record {
	cp := r
	cp.Breakdown = make(map[trustscore.Factor]float64, len(r.Breakdown))
	for k, v := range r.Breakdown {
		cp.Breakdown[k] = v
	}
	return cp
}
