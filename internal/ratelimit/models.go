// Package ratelimit bounds request volume per client identity. It is a
// best-effort abuse deterrent, not a security boundary: counters may reset
// on restart (memory store) or degrade open when the backing store errors.
package ratelimit

import (
	"context"
	"time"
)

// Result of one Allow check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds; only meaningful when denied
}

// Store implementations count requests per key within a window.
type Store interface {
	// Allow records one request for key and reports whether it fits within
	// limit for the current window. now is injected for testability.
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*Result, error)
	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}
