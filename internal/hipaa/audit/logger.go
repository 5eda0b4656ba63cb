package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vetdocs/internal/hipaa/phi"
	"vetdocs/internal/platform/config"
	"vetdocs/internal/platform/metrics"
)

// Publisher mirrors records to an external sink (Kafka). Optional.
type Publisher interface {
	Publish(ctx context.Context, record Record) error
}

// Logger is the single entry point for emitting audit records. It owns
// redaction: callers may pass raw detail maps and trust that nothing
// PHI-shaped reaches the store or the mirror.
type Logger struct {
	store       Store
	detector    *phi.Detector
	log         *slog.Logger
	publisher   Publisher
	metrics     *metrics.Metrics
	writePolicy config.AuditPolicy
	readPolicy  config.AuditPolicy
}

type Option func(*Logger)

func WithPublisher(p Publisher) Option {
	return func(l *Logger) { l.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Logger) { l.metrics = m }
}

// WithPolicies overrides the failure policy per operation kind. Defaults:
// closed for writes, open for reads.
func WithPolicies(write, read config.AuditPolicy) Option {
	return func(l *Logger) {
		l.writePolicy = write
		l.readPolicy = read
	}
}

func NewLogger(store Store, detector *phi.Detector, log *slog.Logger, opts ...Option) *Logger {
	l := &Logger{
		store:       store,
		detector:    detector,
		log:         log,
		writePolicy: config.PolicyClosed,
		readPolicy:  config.PolicyOpen,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log redacts and persists one record, returning its ID. A store failure is
// wrapped in ErrAuditWrite; the caller decides what to do with it via
// FailClosed. Mirror publish failures only warn: the DB row is the source of
// truth.
func (l *Logger) Log(ctx context.Context, record Record) (uuid.UUID, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if record.Outcome == "" {
		record.Outcome = OutcomeSuccess
	}
	record.Detail = l.detector.Redact(record.Detail)

	if err := l.store.Append(ctx, record); err != nil {
		if l.metrics != nil {
			l.metrics.AuditWriteFailures.Inc()
		}
		l.log.Error("audit write failed",
			"event_type", record.EventType,
			"resource_type", record.ResourceType,
			"error", err,
		)
		return uuid.Nil, fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}

	if l.metrics != nil {
		l.metrics.AuditEvents.WithLabelValues(string(record.EventType), string(record.Outcome)).Inc()
	}

	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, record); err != nil {
			l.log.Warn("audit mirror publish failed", "id", record.ID, "error", err)
		}
	}
	return record.ID, nil
}

// Query returns records matching filter, newest first.
func (l *Logger) Query(ctx context.Context, filter Filter) ([]Record, error) {
	return l.store.Query(ctx, filter)
}

// FailClosed reports whether a failed audit write for this event type must
// fail the triggering operation. Writes default closed (never persist
// business data while losing its trail), reads default open (never block
// routine reads on a logging outage).
func (l *Logger) FailClosed(t EventType) bool {
	if t.IsWrite() {
		return l.writePolicy == config.PolicyClosed
	}
	return l.readPolicy == config.PolicyClosed
}
