package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncolab/leukoflow/internal/domain/submission"
)

type SubmissionRepo struct {
	db *gorm.DB
}

func NewSubmissionRepo(db *gorm.DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

func (r *SubmissionRepo) Create(ctx context.Context, s *submission.Submission) error {
	if s.Date.IsZero() {
		s.Date = time.Now()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	var s submission.Submission
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, submission.ErrSubmissionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepo) List(ctx context.Context, q *submission.ListSubmissionsQuery) ([]*submission.Submission, error) {
	tx := r.db.WithContext(ctx).Model(&submission.Submission{})
	if q != nil {
		if q.PatientID != nil {
			tx = tx.Where("patient_id = ?", *q.PatientID)
		}
		if q.DoctorID != nil {
			tx = tx.Where("doctor_id = ?", *q.DoctorID)
		}
	}

	var subs []*submission.Submission
	err := tx.Order("date DESC").Find(&subs).Error
	return subs, err
}
