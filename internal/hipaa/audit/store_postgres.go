package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PostgresStore persists audit records in the hipaa_audit_logs table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	var detail []byte
	if record.Detail != nil {
		var err error
		detail, err = json.Marshal(record.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	query := `
		INSERT INTO hipaa_audit_logs (
			id, timestamp, event_type, actor_id, actor_email,
			client_ip, user_agent, resource_type, resource_id,
			action, outcome, phi_involved, detail
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.Timestamp,
		string(record.EventType),
		record.ActorID,
		record.ActorEmail,
		record.ClientIP,
		record.UserAgent,
		record.ResourceType,
		record.ResourceID,
		record.Action,
		string(record.Outcome),
		record.PHIInvolved,
		detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if !filter.From.IsZero() {
		conditions = append(conditions, "timestamp >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "timestamp <= "+arg(filter.To))
	}
	if filter.EventType != "" {
		conditions = append(conditions, "event_type = "+arg(string(filter.EventType)))
	}
	if filter.ActorEmail != "" {
		conditions = append(conditions, "actor_email = "+arg(filter.ActorEmail))
	}
	if filter.PHIInvolved != nil {
		conditions = append(conditions, "phi_involved = "+arg(*filter.PHIInvolved))
	}

	query := `
		SELECT id, timestamp, event_type, actor_id, actor_email,
		       client_ip, user_agent, resource_type, resource_id,
		       action, outcome, phi_involved, detail
		FROM hipaa_audit_logs
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	query += " ORDER BY timestamp DESC LIMIT " + arg(limit) + " OFFSET " + arg(filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			record    Record
			eventType string
			outcome   string
			detail    []byte
		)
		err := rows.Scan(
			&record.ID,
			&record.Timestamp,
			&eventType,
			&record.ActorID,
			&record.ActorEmail,
			&record.ClientIP,
			&record.UserAgent,
			&record.ResourceType,
			&record.ResourceID,
			&record.Action,
			&outcome,
			&record.PHIInvolved,
			&detail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		record.EventType = EventType(eventType)
		record.Outcome = Outcome(outcome)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &record.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM hipaa_audit_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit records: %w", err)
	}
	return result.RowsAffected()
}
