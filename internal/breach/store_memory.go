package breach

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu        sync.RWMutex
	incidents map[uuid.UUID]Incident
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{incidents: make(map[uuid.UUID]Incident)}
}

func (s *MemoryStore) Insert(_ context.Context, incident Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[incident.ID] = incident
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incident, ok := s.incidents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &incident, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Incident, 0, len(s.incidents))
	for _, incident := range s.incidents {
		out = append(out, incident)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscoveredDate.After(out[j].DiscoveredDate) })
	return out, nil
}
