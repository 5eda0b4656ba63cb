package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements a sliding window over in-process state. Counters do
// not survive restarts and are per-replica; use RedisStore when limits must
// span instances.
//
// Locking is two-level: the map mutex is held only to look up or create an
// entry, and each entry carries its own mutex for counting. Concurrent
// requests for different clients never contend on one lock.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*slidingWindow
}

type slidingWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*slidingWindow)}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (*Result, error) {
	entry := s.getOrCreate(key)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.prune(now.Add(-window))

	if len(entry.timestamps) >= limit {
		resetAt := entry.timestamps[0].Add(window)
		return &Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt, now),
		}, nil
	}

	entry.timestamps = append(entry.timestamps, now)
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(entry.timestamps),
		ResetAt:   entry.timestamps[0].Add(window),
	}, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) getOrCreate(key string) *slidingWindow {
	s.mu.RLock()
	entry := s.entries[key]
	s.mu.RUnlock()
	if entry != nil {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry = s.entries[key]; entry == nil {
		entry = &slidingWindow{}
		s.entries[key] = entry
	}
	return entry
}

// prune drops timestamps at or before cutoff. Caller holds the entry lock.
func (w *slidingWindow) prune(cutoff time.Time) {
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}

func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
