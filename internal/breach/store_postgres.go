package breach

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists incidents in hipaa_breach_incidents.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const incidentColumns = `id, incident_date, discovered_date, incident_type, description,
	affected_individuals_count, phi_types_involved, cause, severity, status`

func (s *PostgresStore) Insert(ctx context.Context, i Incident) error {
	query := fmt.Sprintf(`INSERT INTO hipaa_breach_incidents (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, incidentColumns)

	_, err := s.db.ExecContext(ctx, query,
		i.ID, i.IncidentDate, i.DiscoveredDate, i.IncidentType, i.Description,
		i.AffectedIndividualsCount, pq.Array(i.PHITypesInvolved), i.Cause, i.Severity, i.Status)
	if err != nil {
		return fmt.Errorf("insert breach incident: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM hipaa_breach_incidents WHERE id = $1`, incidentColumns)

	var i Incident
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&i.ID, &i.IncidentDate, &i.DiscoveredDate, &i.IncidentType, &i.Description,
		&i.AffectedIndividualsCount, pq.Array(&i.PHITypesInvolved), &i.Cause, &i.Severity, &i.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find breach incident: %w", err)
	}
	return &i, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM hipaa_breach_incidents
		ORDER BY discovered_date DESC`, incidentColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list breach incidents: %w", err)
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		var i Incident
		err := rows.Scan(
			&i.ID, &i.IncidentDate, &i.DiscoveredDate, &i.IncidentType, &i.Description,
			&i.AffectedIndividualsCount, pq.Array(&i.PHITypesInvolved), &i.Cause, &i.Severity, &i.Status)
		if err != nil {
			return nil, fmt.Errorf("scan breach incident: %w", err)
		}
		incidents = append(incidents, i)
	}
	return incidents, rows.Err()
}
