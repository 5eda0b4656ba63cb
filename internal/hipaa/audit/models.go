// Package audit writes the append-only trail of every PHI-relevant
// operation. Records are redacted before persistence; the audit log itself
// must never contain plaintext PHI.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies audit events.
type EventType string

const (
	EventAccess       EventType = "access"
	EventCreate       EventType = "create"
	EventUpdate       EventType = "update"
	EventDelete       EventType = "delete"
	EventAccessDenied EventType = "access_denied"
	EventLogin        EventType = "login"
	EventLogout       EventType = "logout"
	EventSystemAccess EventType = "system_access"
)

// writeEvents are the event types whose audit failure policy defaults to
// fail-closed: losing the trail of a mutation is worse than failing it.
var writeEvents = map[EventType]struct{}{
	EventCreate: {},
	EventUpdate: {},
	EventDelete: {},
}

// IsWrite reports whether the event records a mutation.
func (t EventType) IsWrite() bool {
	_, ok := writeEvents[t]
	return ok
}

// Outcome of the audited operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeWarning Outcome = "WARNING"
)

// Record is one audit trail entry. Append-only: nothing mutates or deletes a
// record except the retention sweep once the minimum retention period has
// elapsed.
type Record struct {
	ID           uuid.UUID
	Timestamp    time.Time
	EventType    EventType
	ActorID      string
	ActorEmail   string
	ClientIP     string
	UserAgent    string
	ResourceType string
	ResourceID   string
	Action       string
	Outcome      Outcome
	PHIInvolved  bool
	Detail       map[string]any
}

// Filter narrows a Query. Zero values mean "any".
type Filter struct {
	From        time.Time
	To          time.Time
	EventType   EventType
	ActorEmail  string
	PHIInvolved *bool
	Limit       int
	Offset      int
}

// DefaultQueryLimit caps unpaginated queries; the admin endpoint allows
// raising it to MaxQueryLimit.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)
