package submission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Submission) error

	// GetByID returns ErrSubmissionNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)

	// List returns submissions matching the query filters, most recent first.
	List(ctx context.Context, q *ListSubmissionsQuery) ([]*Submission, error)
}
