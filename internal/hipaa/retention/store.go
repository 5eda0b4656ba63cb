package retention

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateSchedule means the resource already has an active entry.
	// Callers treat it as an idempotent no-op, not a failure.
	ErrDuplicateSchedule = errors.New("retention already scheduled for resource")

	// ErrNotFound keeps store-level misses consistent across implementations.
	ErrNotFound = errors.New("retention entry not found")
)

type Store interface {
	// Create persists a scheduled entry. Returns ErrDuplicateSchedule when
	// an active entry already exists for the same resource.
	Create(ctx context.Context, entry Entry) error
	// FindDue returns scheduled entries whose deletion date is at or before now.
	FindDue(ctx context.Context, now time.Time) ([]Entry, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
	// Cancel transitions the active entry for a resource to cancelled.
	Cancel(ctx context.Context, resourceType, resourceID string) error
}
