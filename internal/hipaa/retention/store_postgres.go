package retention

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists retention entries in hipaa_data_retention. The
// one-active-entry invariant is enforced by a partial unique index on
// (resource_type, resource_id) WHERE status = 'scheduled'.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO hipaa_data_retention (
			id, resource_type, resource_id, scheduled_deletion_at, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.ResourceType,
		entry.ResourceID,
		entry.ScheduledDeletionAt,
		string(entry.Status),
		entry.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateSchedule
		}
		return fmt.Errorf("insert retention entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDue(ctx context.Context, now time.Time) ([]Entry, error) {
	query := `
		SELECT id, resource_type, resource_id, scheduled_deletion_at, status, created_at, completed_at
		FROM hipaa_data_retention
		WHERE status = 'scheduled' AND scheduled_deletion_at <= $1
		ORDER BY scheduled_deletion_at
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query due retention entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			status string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.ScheduledDeletionAt,
			&status,
			&entry.CreatedAt,
			&entry.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan retention entry: %w", err)
		}
		entry.Status = Status(status)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate retention entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE hipaa_data_retention
		SET status = 'completed', completed_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`, id, at)
	if err != nil {
		return fmt.Errorf("complete retention entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Cancel(ctx context.Context, resourceType, resourceID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE hipaa_data_retention
		SET status = 'cancelled'
		WHERE resource_type = $1 AND resource_id = $2 AND status = 'scheduled'
	`, resourceType, resourceID)
	if err != nil {
		return fmt.Errorf("cancel retention entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
