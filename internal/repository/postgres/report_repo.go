package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncolab/leukoflow/internal/domain/report"
)

type ReportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) Create(ctx context.Context, rep *report.Report) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *ReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	var rep report.Report
	err := r.db.WithContext(ctx).First(&rep, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, report.ErrReportNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepo) Update(ctx context.Context, id uuid.UUID, cmd *report.UpdateReportCommand) (*report.Report, error) {
	rep, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if cmd.Type != nil {
		updates["type"] = *cmd.Type
	}
	if cmd.Diagnosis != nil {
		updates["diagnosis"] = *cmd.Diagnosis
	}
	if cmd.Stage != nil {
		updates["stage"] = *cmd.Stage
	}
	if cmd.DoctorNotes != nil {
		updates["doctor_notes"] = *cmd.DoctorNotes
	}
	if cmd.Status != nil {
		updates["status"] = *cmd.Status
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(rep).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func (r *ReportRepo) Save(ctx context.Context, rep *report.Report) error {
	return r.db.WithContext(ctx).Save(rep).Error
}

func (r *ReportRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&report.Report{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return report.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepo) List(ctx context.Context) ([]*report.Report, error) {
	var reports []*report.Report
	err := r.db.WithContext(ctx).Order("date DESC").Find(&reports).Error
	return reports, err
}

func (r *ReportRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*report.Report, error) {
	var reports []*report.Report
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("date DESC").
		Find(&reports).Error
	return reports, err
}

func (r *ReportRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*report.Report, error) {
	var reports []*report.Report
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("date DESC").
		Find(&reports).Error
	return reports, err
}

func (r *ReportRepo) LatestForPair(ctx context.Context, patientID, doctorID uuid.UUID) (*report.Report, error) {
	var rep report.Report
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND doctor_id = ?", patientID, doctorID).
		Order("date DESC").
		First(&rep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, report.ErrReportNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepo) DistinctPatientIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&report.Report{}).
		Where("doctor_id = ?", doctorID).
		Distinct("patient_id").
		Pluck("patient_id", &ids).Error
	return ids, err
}
