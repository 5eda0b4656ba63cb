package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/platform/metrics"
)

// Purger deletes or anonymizes the underlying business record. Each
// PHI-bearing repository registers one under its resource type.
type Purger interface {
	Purge(ctx context.Context, resourceID string) error
}

// PurgeFunc adapts a plain function to the Purger interface.
type PurgeFunc func(ctx context.Context, resourceID string) error

func (f PurgeFunc) Purge(ctx context.Context, resourceID string) error { return f(ctx, resourceID) }

// Scheduler owns the retention lifecycle: schedule on create, sweep on
// demand or on a timer. Sweeps are idempotent; entries whose purge fails
// stay scheduled and are retried next run.
type Scheduler struct {
	store          Store
	auditor        *audit.Logger
	purgers        map[string]Purger
	log            *slog.Logger
	metrics        *metrics.Metrics
	retentionYears int

	// auditRetention bounds how long audit records themselves are kept.
	// Zero disables audit purging.
	auditRetentionYears int
	auditStore          audit.Store
}

type SchedulerOption func(*Scheduler)

func WithMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// WithAuditPurge enables deletion of audit records older than years during
// each sweep.
func WithAuditPurge(store audit.Store, years int) SchedulerOption {
	return func(s *Scheduler) {
		s.auditStore = store
		s.auditRetentionYears = years
	}
}

func NewScheduler(store Store, auditor *audit.Logger, retentionYears int, log *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:          store,
		auditor:        auditor,
		purgers:        make(map[string]Purger),
		log:            log,
		retentionYears: retentionYears,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterPurger binds a resource type to the repository that can delete it.
func (s *Scheduler) RegisterPurger(resourceType string, purger Purger) {
	s.purgers[resourceType] = purger
}

// Schedule records a deletion due-date for a newly created PHI-bearing
// resource. Scheduling twice for the same resource is an idempotent no-op.
func (s *Scheduler) Schedule(ctx context.Context, resourceType, resourceID string, createdAt time.Time) (Entry, error) {
	entry := Entry{
		ID:                  uuid.New(),
		ResourceType:        resourceType,
		ResourceID:          resourceID,
		ScheduledDeletionAt: createdAt.AddDate(s.retentionYears, 0, 0),
		Status:              StatusScheduled,
		CreatedAt:           createdAt,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateSchedule) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("schedule retention: %w", err)
	}
	return entry, nil
}

// Cancel drops the active entry for a resource that was deleted ahead of its
// due-date (e.g. by an admin).
func (s *Scheduler) Cancel(ctx context.Context, resourceType, resourceID string) error {
	return s.store.Cancel(ctx, resourceType, resourceID)
}

// ExecuteDue purges every scheduled entry whose due-date has passed. Each
// attempt is audited. Failed purges leave the entry scheduled for the next
// sweep, so re-running after a partial failure only re-attempts the
// stragglers.
func (s *Scheduler) ExecuteDue(ctx context.Context, now time.Time) ([]SweepResult, error) {
	due, err := s.store.FindDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find due retention entries: %w", err)
	}

	results := make([]SweepResult, 0, len(due))
	for _, entry := range due {
		result := SweepResult{ResourceType: entry.ResourceType, ResourceID: entry.ResourceID}

		if err := s.purge(ctx, entry); err != nil {
			result.Outcome = string(audit.OutcomeFailure)
			result.Err = err.Error()
			s.log.Error("retention purge failed",
				"resource_type", entry.ResourceType,
				"resource_id", entry.ResourceID,
				"error", err,
			)
		} else {
			result.Outcome = string(audit.OutcomeSuccess)
		}

		if s.metrics != nil {
			s.metrics.RetentionSweeps.WithLabelValues(result.Outcome).Inc()
		}
		s.auditAttempt(ctx, entry, result)
		results = append(results, result)
	}

	s.purgeExpiredAudit(ctx, now)
	return results, nil
}

func (s *Scheduler) purge(ctx context.Context, entry Entry) error {
	purger, ok := s.purgers[entry.ResourceType]
	if !ok {
		return fmt.Errorf("no purger registered for resource type %q", entry.ResourceType)
	}
	if err := purger.Purge(ctx, entry.ResourceID); err != nil {
		return err
	}
	if err := s.store.MarkCompleted(ctx, entry.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark retention completed: %w", err)
	}
	return nil
}

func (s *Scheduler) auditAttempt(ctx context.Context, entry Entry, result SweepResult) {
	record := audit.Record{
		EventType:    audit.EventDelete,
		ActorEmail:   "system",
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Action:       "retention sweep",
		Outcome:      audit.Outcome(result.Outcome),
		PHIInvolved:  true,
	}
	if result.Err != "" {
		record.Detail = map[string]any{"error": result.Err}
	}
	// Sweep audit failures are logged, not propagated: the purge itself
	// already happened or already failed, and the sweep retries forever.
	if _, err := s.auditor.Log(ctx, record); err != nil {
		s.log.Error("failed to audit retention sweep", "error", err)
	}
}

func (s *Scheduler) purgeExpiredAudit(ctx context.Context, now time.Time) {
	if s.auditStore == nil || s.auditRetentionYears <= 0 {
		return
	}
	cutoff := now.AddDate(-s.auditRetentionYears, 0, 0)
	purged, err := s.auditStore.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error("failed to purge expired audit records", "error", err)
		return
	}
	if purged > 0 {
		s.log.Info("purged expired audit records", "count", purged, "cutoff", cutoff)
		// The trail must show that the system trimmed its own trail.
		if _, err := s.auditor.Log(ctx, audit.Record{
			EventType:    audit.EventSystemAccess,
			ActorEmail:   "system",
			ResourceType: "audit_logs",
			Action:       "purged audit records past retention",
			Outcome:      audit.OutcomeSuccess,
			Detail:       map[string]any{"purged": purged, "cutoff": cutoff.Format(time.RFC3339)},
		}); err != nil {
			s.log.Error("failed to audit the audit-log purge", "error", err)
		}
	}
}

// Run executes a sweep on every tick until the context is cancelled. Used by
// cmd/server as the background sweeper.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.ExecuteDue(ctx, time.Now().UTC()); err != nil {
				s.log.Error("retention sweep failed", "error", err)
			}
		}
	}
}
