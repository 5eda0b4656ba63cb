package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists file metadata in the files table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const fileColumns = `id, original_filename, stored_key, content_type, category,
	size_bytes, sha256, contact_id, phi_involved, uploaded_at`

func (s *PostgresStore) Insert(ctx context.Context, f File) error {
	query := fmt.Sprintf(`INSERT INTO files (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, fileColumns)

	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.OriginalFilename, f.StoredKey, f.ContentType, f.Category,
		f.SizeBytes, f.SHA256, f.ContactID, f.PHIInvolved, f.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert file metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*File, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	var f File
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.OriginalFilename, &f.StoredKey, &f.ContentType, &f.Category,
		&f.SizeBytes, &f.SHA256, &f.ContactID, &f.PHIInvolved, &f.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find file metadata: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) ListByContact(ctx context.Context, contactID uuid.UUID) ([]File, error) {
	query := fmt.Sprintf(`SELECT %s FROM files
		WHERE contact_id = $1 ORDER BY uploaded_at DESC`, fileColumns)

	rows, err := s.db.QueryContext(ctx, query, contactID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		err := rows.Scan(
			&f.ID, &f.OriginalFilename, &f.StoredKey, &f.ContentType, &f.Category,
			&f.SizeBytes, &f.SHA256, &f.ContactID, &f.PHIInvolved, &f.UploadedAt)
		if err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
