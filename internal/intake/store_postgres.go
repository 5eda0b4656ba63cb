package intake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresContactStore persists contacts in the contacts table. Encrypted
// columns are opaque text; the store neither knows nor cares which rows
// are ciphertext.
type PostgresContactStore struct {
	db *sql.DB
}

func NewPostgresContactStore(db *sql.DB) *PostgresContactStore {
	return &PostgresContactStore{db: db}
}

func (s *PostgresContactStore) Insert(ctx context.Context, c Contact) error {
	query := `
		INSERT INTO contacts
			(id, name, email, phone, subject, message, status, phi_involved, email_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.Subject, c.Message,
		c.Status, c.PHIInvolved, c.EmailHash, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (s *PostgresContactStore) FindByID(ctx context.Context, id uuid.UUID) (*Contact, error) {
	query := `
		SELECT id, name, email, phone, subject, message, status, phi_involved, email_hash, created_at
		FROM contacts
		WHERE id = $1`

	var c Contact
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Subject, &c.Message,
		&c.Status, &c.PHIInvolved, &c.EmailHash, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}
	return &c, nil
}

func (s *PostgresContactStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresConsultationStore persists consultation requests.
type PostgresConsultationStore struct {
	db *sql.DB
}

func NewPostgresConsultationStore(db *sql.DB) *PostgresConsultationStore {
	return &PostgresConsultationStore{db: db}
}

func (s *PostgresConsultationStore) Insert(ctx context.Context, r ConsultationRequest) error {
	query := `
		INSERT INTO consultation_requests
			(id, name, email, phone, service_branch, discharge_year,
			 condition_description, status, phi_involved, email_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Email, r.Phone, r.ServiceBranch, r.DischargeYear,
		r.ConditionDescription, r.Status, r.PHIInvolved, r.EmailHash, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert consultation request: %w", err)
	}
	return nil
}

func (s *PostgresConsultationStore) FindByID(ctx context.Context, id uuid.UUID) (*ConsultationRequest, error) {
	query := `
		SELECT id, name, email, phone, service_branch, discharge_year,
			condition_description, status, phi_involved, email_hash, created_at
		FROM consultation_requests
		WHERE id = $1`

	var r ConsultationRequest
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.Name, &r.Email, &r.Phone, &r.ServiceBranch, &r.DischargeYear,
		&r.ConditionDescription, &r.Status, &r.PHIInvolved, &r.EmailHash, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find consultation request: %w", err)
	}
	return &r, nil
}

func (s *PostgresConsultationStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM consultation_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete consultation request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete consultation request: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
