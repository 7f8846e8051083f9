package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncolab/leukoflow/internal/domain/patient"
)

type PatientRepo struct {
	db *gorm.DB
}

func NewPatientRepo(db *gorm.DB) *PatientRepo {
	return &PatientRepo{db: db}
}

func (r *PatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return patient.ErrPatientAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PatientRepo) GetByEmail(ctx context.Context, email string) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).First(&p, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PatientRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*patient.Patient, error) {
	var patients []*patient.Patient
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&patients).Error
	return patients, err
}

func (r *PatientRepo) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if cmd.Name != nil {
		updates["name"] = *cmd.Name
	}
	if cmd.Age != nil {
		updates["age"] = *cmd.Age
	}
	if cmd.Gender != nil {
		updates["gender"] = *cmd.Gender
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (r *PatientRepo) Save(ctx context.Context, p *patient.Patient) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PatientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&patient.Patient{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepo) List(ctx context.Context) ([]*patient.Patient, error) {
	var patients []*patient.Patient
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&patients).Error
	return patients, err
}

func (r *PatientRepo) Search(ctx context.Context, query string) ([]*patient.Patient, error) {
	var patients []*patient.Patient
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR email ILIKE ?", pattern, pattern).
		Find(&patients).Error
	return patients, err
}
