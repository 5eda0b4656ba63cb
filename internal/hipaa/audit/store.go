package audit

import (
	"context"
	"errors"
	"time"
)

// ErrAuditWrite wraps any failure persisting a record. Callers apply the
// configured closed/open policy; the event is never silently dropped.
var ErrAuditWrite = errors.New("audit write failed")

// Store is interface-driven so tests can run against the in-memory
// implementation and production against PostgreSQL.
type Store interface {
	Append(ctx context.Context, record Record) error
	Query(ctx context.Context, filter Filter) ([]Record, error)
	// PurgeOlderThan removes records past the minimum retention period.
	// Only the retention sweep calls this.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
