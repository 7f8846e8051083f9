package report

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error

	// GetByID retrieves a report. Returns ErrReportNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)

	// Update applies partial updates. Returns ErrReportNotFound if absent.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateReportCommand) (*Report, error)

	// Save writes the full report row (AI-attach path).
	Save(ctx context.Context, r *Report) error

	// Delete removes the report record only; patient references to it are
	// not cascaded.
	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context) ([]*Report, error)

	// ListByDoctor returns a doctor's reports, most recent first.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Report, error)

	// ListByPatient returns a patient's reports, most recent first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Report, error)

	// LatestForPair returns the most recently dated report for an exact
	// (patient, doctor) pair, or ErrReportNotFound when none exists.
	LatestForPair(ctx context.Context, patientID, doctorID uuid.UUID) (*Report, error)

	// DistinctPatientIDs returns the distinct patients across a doctor's
	// reports — the recomputable roster.
	DistinctPatientIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
}
