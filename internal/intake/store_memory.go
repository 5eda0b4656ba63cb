package intake

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryContactStore is an in-memory ContactStore for tests.
type MemoryContactStore struct {
	mu       sync.RWMutex
	contacts map[uuid.UUID]Contact
}

func NewMemoryContactStore() *MemoryContactStore {
	return &MemoryContactStore{contacts: make(map[uuid.UUID]Contact)}
}

func (s *MemoryContactStore) Insert(_ context.Context, contact Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[contact.ID] = contact
	return nil
}

func (s *MemoryContactStore) FindByID(_ context.Context, id uuid.UUID) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &contact, nil
}

func (s *MemoryContactStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

// MemoryConsultationStore is an in-memory ConsultationStore for tests.
type MemoryConsultationStore struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]ConsultationRequest
}

func NewMemoryConsultationStore() *MemoryConsultationStore {
	return &MemoryConsultationStore{requests: make(map[uuid.UUID]ConsultationRequest)}
}

func (s *MemoryConsultationStore) Insert(_ context.Context, req ConsultationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s *MemoryConsultationStore) FindByID(_ context.Context, id uuid.UUID) (*ConsultationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &req, nil
}

func (s *MemoryConsultationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	return nil
}
