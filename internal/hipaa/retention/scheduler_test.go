package retention

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/hipaa/phi"
)

type fakePurger struct {
	purged []string
	fail   map[string]error
}

func (p *fakePurger) Purge(_ context.Context, resourceID string) error {
	if err := p.fail[resourceID]; err != nil {
		return err
	}
	p.purged = append(p.purged, resourceID)
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *MemoryStore, *audit.MemoryStore, *fakePurger) {
	t.Helper()
	store := NewMemoryStore()
	auditStore := audit.NewMemoryStore()
	auditor := audit.NewLogger(auditStore, phi.NewDetector(), slog.Default())
	scheduler := NewScheduler(store, auditor, 6, slog.Default())
	purger := &fakePurger{fail: map[string]error{}}
	scheduler.RegisterPurger("contacts", purger)
	return scheduler, store, auditStore, purger
}

func TestSchedule(t *testing.T) {
	scheduler, _, _, _ := newTestScheduler(t)
	createdAt := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	entry, err := scheduler.Schedule(context.Background(), "contacts", "c-1", createdAt)
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, entry.Status)
	assert.Equal(t, createdAt.AddDate(6, 0, 0), entry.ScheduledDeletionAt)
}

func TestScheduleDuplicate(t *testing.T) {
	scheduler, _, _, _ := newTestScheduler(t)
	ctx := context.Background()
	createdAt := time.Now().UTC()

	_, err := scheduler.Schedule(ctx, "contacts", "c-1", createdAt)
	require.NoError(t, err)

	_, err = scheduler.Schedule(ctx, "contacts", "c-1", createdAt)
	assert.ErrorIs(t, err, ErrDuplicateSchedule)

	// A different resource is unaffected.
	_, err = scheduler.Schedule(ctx, "contacts", "c-2", createdAt)
	assert.NoError(t, err)
}

func TestExecuteDue(t *testing.T) {
	scheduler, store, auditStore, purger := newTestScheduler(t)
	ctx := context.Background()
	createdAt := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	entry, err := scheduler.Schedule(ctx, "contacts", "c-old", createdAt)
	require.NoError(t, err)
	_, err = scheduler.Schedule(ctx, "contacts", "c-new", time.Now().UTC())
	require.NoError(t, err)

	results, err := scheduler.ExecuteDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, results, 1, "only the overdue entry is swept")
	assert.Equal(t, "SUCCESS", results[0].Outcome)
	assert.Equal(t, []string{"c-old"}, purger.purged)

	stored, ok := store.Get(entry.ID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	// Every attempt is audited.
	records, err := auditStore.Query(ctx, audit.Filter{EventType: audit.EventDelete})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeSuccess, records[0].Outcome)
	assert.True(t, records[0].PHIInvolved)
	assert.Equal(t, "c-old", records[0].ResourceID)
}

func TestExecuteDueIdempotent(t *testing.T) {
	scheduler, _, _, purger := newTestScheduler(t)
	ctx := context.Background()

	_, err := scheduler.Schedule(ctx, "contacts", "c-1", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	first, err := scheduler.ExecuteDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := scheduler.ExecuteDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, second, "second sweep finds nothing newly due")
	assert.Len(t, purger.purged, 1, "deletion performed exactly once")
}

func TestExecuteDueRetriesFailures(t *testing.T) {
	scheduler, store, auditStore, purger := newTestScheduler(t)
	ctx := context.Background()
	old := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	broken, err := scheduler.Schedule(ctx, "contacts", "c-broken", old)
	require.NoError(t, err)
	_, err = scheduler.Schedule(ctx, "contacts", "c-fine", old)
	require.NoError(t, err)

	purger.fail["c-broken"] = errors.New("store unreachable")

	results, err := scheduler.ExecuteDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, results, 2)

	outcomes := map[string]string{}
	for _, r := range results {
		outcomes[r.ResourceID] = r.Outcome
	}
	assert.Equal(t, "FAILURE", outcomes["c-broken"])
	assert.Equal(t, "SUCCESS", outcomes["c-fine"])

	// The failed entry stays scheduled for retry.
	stored, ok := store.Get(broken.ID)
	require.True(t, ok)
	assert.Equal(t, StatusScheduled, stored.Status)

	// Failure was audited too.
	records, err := auditStore.Query(ctx, audit.Filter{EventType: audit.EventDelete})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Retry succeeds once the collaborator recovers.
	delete(purger.fail, "c-broken")
	results, err = scheduler.ExecuteDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SUCCESS", results[0].Outcome)
}

func TestExecuteDueUnknownResourceType(t *testing.T) {
	scheduler, _, _, _ := newTestScheduler(t)
	ctx := context.Background()

	_, err := scheduler.Schedule(ctx, "unregistered", "x-1", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	results, err := scheduler.ExecuteDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "FAILURE", results[0].Outcome)
	assert.Contains(t, results[0].Err, "no purger registered")
}

func TestCancel(t *testing.T) {
	scheduler, store, _, purger := newTestScheduler(t)
	ctx := context.Background()

	entry, err := scheduler.Schedule(ctx, "contacts", "c-1", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, scheduler.Cancel(ctx, "contacts", "c-1"))

	stored, ok := store.Get(entry.ID)
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, stored.Status)

	// Cancelled entries are never swept.
	results, err := scheduler.ExecuteDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, purger.purged)

	assert.ErrorIs(t, scheduler.Cancel(ctx, "contacts", "c-1"), ErrNotFound)
}

func TestAuditPurgeDuringSweep(t *testing.T) {
	store := NewMemoryStore()
	auditStore := audit.NewMemoryStore()
	auditor := audit.NewLogger(auditStore, phi.NewDetector(), slog.Default())
	scheduler := NewScheduler(store, auditor, 6, slog.Default(), WithAuditPurge(auditStore, 6))

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, auditStore.Append(ctx, audit.Record{Timestamp: now.AddDate(-7, 0, 0)}))
	require.NoError(t, auditStore.Append(ctx, audit.Record{Timestamp: now}))

	_, err := scheduler.ExecuteDue(ctx, now)
	require.NoError(t, err)

	records, err := auditStore.Query(ctx, audit.Filter{From: now.AddDate(-6, 0, 0)})
	require.NoError(t, err)
	require.Len(t, records, 2, "expired record purged, current record kept")

	// The purge itself leaves a system-level trail entry.
	trimmed, err := auditStore.Query(ctx, audit.Filter{EventType: audit.EventSystemAccess})
	require.NoError(t, err)
	require.Len(t, trimmed, 1)
	assert.Equal(t, "audit_logs", trimmed[0].ResourceType)
	assert.Equal(t, audit.OutcomeSuccess, trimmed[0].Outcome)
	assert.Equal(t, int64(1), trimmed[0].Detail["purged"])
}
