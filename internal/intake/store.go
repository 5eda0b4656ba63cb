package intake

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates the submission does not exist.
var ErrNotFound = errors.New("intake: not found")

// ContactStore persists contact submissions. Delete exists for the
// retention purger and for compensating removal when a mandatory audit
// write fails.
type ContactStore interface {
	Insert(ctx context.Context, contact Contact) error
	FindByID(ctx context.Context, id uuid.UUID) (*Contact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConsultationStore persists consultation requests.
type ConsultationStore interface {
	Insert(ctx context.Context, req ConsultationRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*ConsultationRequest, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
