package files

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory metadata Store for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[uuid.UUID]File
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[uuid.UUID]File)}
}

func (s *MemoryStore) Insert(_ context.Context, file File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ID] = file
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &file, nil
}

func (s *MemoryStore) ListByContact(_ context.Context, contactID uuid.UUID) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []File
	for _, file := range s.files {
		if file.ContactID != nil && *file.ContactID == contactID {
			out = append(out, file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return ErrNotFound
	}
	delete(s.files, id)
	return nil
}
