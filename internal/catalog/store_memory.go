package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests and demo deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	services []Service
	posts    []BlogPost
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AddService seeds the store. Intended for tests and fixtures.
func (s *MemoryStore) AddService(svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, svc)
}

// AddPost seeds the store. Intended for tests and fixtures.
func (s *MemoryStore) AddPost(post BlogPost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, post)
}

func (s *MemoryStore) ListServices(_ context.Context) ([]Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Service, len(s.services))
	copy(out, s.services)
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *MemoryStore) GetService(_ context.Context, slug string) (*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, svc := range s.services {
		if svc.Slug == slug {
			found := svc
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListPosts(_ context.Context, filter PostFilter) ([]BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	if limit > MaxPostLimit {
		limit = MaxPostLimit
	}

	var out []BlogPost
	for _, post := range s.posts {
		if filter.Category != "" && post.Category != filter.Category {
			continue
		}
		if filter.Query != "" && !matchesQuery(post, filter.Query) {
			continue
		}
		out = append(out, post)
	}

	// Newest first, matching the published listing order.
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetPost(_ context.Context, slug string) (*BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, post := range s.posts {
		if post.Slug == slug {
			found := post
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func matchesQuery(post BlogPost, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(post.Title), q) ||
		strings.Contains(strings.ToLower(post.Excerpt), q)
}
