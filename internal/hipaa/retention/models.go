// Package retention schedules and executes the secure deletion of
// PHI-bearing records once the configured retention period has elapsed.
package retention

import (
	"time"

	"github.com/google/uuid"
)

// Status of a retention entry. Transitions are one-directional:
// scheduled -> completed or scheduled -> cancelled.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Entry tracks one resource's deletion due-date. At most one active
// (scheduled) entry exists per (resource_type, resource_id).
type Entry struct {
	ID                  uuid.UUID
	ResourceType        string
	ResourceID          string
	ScheduledDeletionAt time.Time
	Status              Status
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

// SweepResult reports one purge attempt from ExecuteDue.
type SweepResult struct {
	ResourceType string
	ResourceID   string
	Outcome      string // SUCCESS or FAILURE
	Err          string
}
