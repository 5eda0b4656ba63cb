package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Limiter applies the configured per-minute threshold to client identities.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	log    *slog.Logger
}

func NewLimiter(store Store, perMinute int, log *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		limit:  perMinute,
		window: time.Minute,
		log:    log,
	}
}

// Allow checks and counts one request for clientID. Store errors degrade
// open: a broken Redis must not take the API down with it.
func (l *Limiter) Allow(ctx context.Context, clientID string, now time.Time) *Result {
	result, err := l.store.Allow(ctx, clientID, l.limit, l.window, now)
	if err != nil {
		l.log.Error("rate limit check failed, allowing request", "client", clientID, "error", err)
		return &Result{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}
	return result
}
