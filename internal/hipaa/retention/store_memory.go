package retention

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]Entry)}
}

func (s *MemoryStore) Create(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.ResourceType == entry.ResourceType &&
			existing.ResourceID == entry.ResourceID &&
			existing.Status == StatusScheduled {
			return ErrDuplicateSchedule
		}
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *MemoryStore) FindDue(_ context.Context, now time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []Entry
	for _, entry := range s.entries {
		if entry.Status == StatusScheduled && !entry.ScheduledDeletionAt.After(now) {
			due = append(due, entry)
		}
	}
	return due, nil
}

func (s *MemoryStore) MarkCompleted(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || entry.Status != StatusScheduled {
		return ErrNotFound
	}
	entry.Status = StatusCompleted
	entry.CompletedAt = &at
	s.entries[id] = entry
	return nil
}

func (s *MemoryStore) Cancel(_ context.Context, resourceType, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		if entry.ResourceType == resourceType &&
			entry.ResourceID == resourceID &&
			entry.Status == StatusScheduled {
			entry.Status = StatusCancelled
			s.entries[id] = entry
			return nil
		}
	}
	return ErrNotFound
}

// Get returns an entry by ID; used by tests to assert transitions.
func (s *MemoryStore) Get(id uuid.UUID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok
}
