package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists on duplicate email.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetByEmail retrieves a patient by email address.
	GetByEmail(ctx context.Context, email string) (*Patient, error)

	// GetByIDs fetches the patients for a set of ids; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Patient, error)

	// Update applies partial updates to an existing patient record.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdatePatientCommand) (*Patient, error)

	// Save writes the full patient row. Used by the reconciliation paths
	// after mutating diagnostic state in memory.
	Save(ctx context.Context, p *Patient) error

	// Delete removes the patient record. Reports referencing the patient
	// are left in place.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns all patients.
	List(ctx context.Context) ([]*Patient, error)

	// Search matches name or email case-insensitively.
	Search(ctx context.Context, query string) ([]*Patient, error)
}
