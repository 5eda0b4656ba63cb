package files

import (
	"context"

	"github.com/google/uuid"
)

// Store persists file metadata rows.
type Store interface {
	Insert(ctx context.Context, file File) error
	FindByID(ctx context.Context, id uuid.UUID) (*File, error)
	ListByContact(ctx context.Context, contactID uuid.UUID) ([]File, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
