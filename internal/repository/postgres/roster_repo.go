package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oncolab/leukoflow/internal/domain"
)

// RosterRepo maintains the doctor-patient link rows. Adding the same
// pair twice is a no-op, so the roster behaves like a set.
type RosterRepo struct {
	db *gorm.DB
}

func NewRosterRepo(db *gorm.DB) *RosterRepo {
	return &RosterRepo{db: db}
}

func (r *RosterRepo) AddPatient(ctx context.Context, doctorID, patientID uuid.UUID) error {
	link := domain.DoctorPatient{
		DoctorID:  doctorID,
		PatientID: patientID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "patient_id"}},
			DoNothing: true,
		}).
		Create(&link).Error
}

func (r *RosterRepo) PatientIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.DoctorPatient{}).
		Where("doctor_id = ?", doctorID).
		Order("created_at ASC").
		Pluck("patient_id", &ids).Error
	return ids, err
}
