package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/internal/domain/report"
	"github.com/oncolab/leukoflow/internal/domain/submission"
	"github.com/oncolab/leukoflow/internal/storage"
)

// MaxImagesPerSubmission bounds one pathology batch.
const MaxImagesPerSubmission = 10

// RosterRepository is the doctor-side patient roster: a cached set of
// (doctor, patient) pairs with idempotent insertion.
type RosterRepository interface {
	AddPatient(ctx context.Context, doctorID, patientID uuid.UUID) error
	PatientIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
}

// SubmissionService implements pathology intake: validation, image
// upload, and the non-atomic write sequence across doctor roster,
// patient record, report spillover, and the submission itself. Each step
// commits independently; a failure mid-sequence leaves earlier writes in
// place and surfaces as a server error.
type SubmissionService struct {
	repo        submission.Repository
	patientRepo patient.Repository
	reportRepo  report.Repository
	userRepo    UserRepository
	roster      RosterRepository
	store       storage.ImageStore
	log         *zap.Logger
}

func NewSubmissionService(
	repo submission.Repository,
	patientRepo patient.Repository,
	reportRepo report.Repository,
	userRepo UserRepository,
	roster RosterRepository,
	store storage.ImageStore,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		repo:        repo,
		patientRepo: patientRepo,
		reportRepo:  reportRepo,
		userRepo:    userRepo,
		roster:      roster,
		store:       store,
		log:         log,
	}
}

// CreateSubmission accepts a pathologist image batch for a (patient,
// doctor) pair. All validation runs before any write, so a rejected
// request leaves no trace.
func (s *SubmissionService) CreateSubmission(ctx context.Context, cmd *submission.CreateSubmissionCommand) (*submission.View, error) {
	if err := validateSubmissionCommand(cmd); err != nil {
		return nil, err
	}

	// Patient and doctor are resolved concurrently; when both are missing
	// the patient error wins.
	type doctorLookup struct {
		user *domain.User
		err  error
	}
	doctorCh := make(chan doctorLookup, 1)
	go func() {
		u, err := s.userRepo.GetByID(ctx, cmd.DoctorID)
		doctorCh <- doctorLookup{user: u, err: err}
	}()

	p, patientErr := s.patientRepo.GetByID(ctx, cmd.PatientID)
	doctor := <-doctorCh

	if patientErr != nil {
		if errors.Is(patientErr, patient.ErrPatientNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("resolving patient: %w", patientErr)
	}
	if doctor.err != nil || doctor.user.Role != domain.RoleDoctor {
		if doctor.err != nil && !isNotFound(doctor.err) {
			return nil, fmt.Errorf("resolving doctor: %w", doctor.err)
		}
		return nil, report.ErrDoctorNotFound
	}

	// Upload before any entity write so an object-store failure aborts
	// the sequence cleanly. Already-uploaded objects of a failed batch
	// are not cleaned up; orphaned objects are an accepted cost.
	urls := make([]string, 0, len(cmd.Images))
	for _, img := range cmd.Images {
		url, err := s.store.Upload(ctx, img.Filename, img.ContentType, img.Data)
		if err != nil {
			s.log.Error("image upload failed",
				zap.String("filename", img.Filename),
				zap.Error(err),
			)
			// A rejected payload is the caller's fault; only genuine
			// store failures count as upstream.
			if errors.Is(err, storage.ErrFileTooLarge) ||
				errors.Is(err, storage.ErrInvalidContentType) ||
				errors.Is(err, storage.ErrMissingFileName) {
				return nil, err
			}
			return nil, &UpstreamError{Op: "uploading image " + img.Filename, Err: err}
		}
		urls = append(urls, url)
	}

	// Non-atomic write sequence starts here.
	if err := s.roster.AddPatient(ctx, doctor.user.ID, p.ID); err != nil {
		return nil, fmt.Errorf("updating doctor roster: %w", err)
	}

	p.AppendImages(urls)
	if err := s.patientRepo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("appending patient images: %w", err)
	}

	// Spillover: if the pair already has a report, the new images join
	// its image list too. A convenience write, not part of the contract.
	latest, err := s.reportRepo.LatestForPair(ctx, p.ID, doctor.user.ID)
	switch {
	case err == nil:
		latest.AppendImages(urls)
		if err := s.reportRepo.Save(ctx, latest); err != nil {
			return nil, fmt.Errorf("appending report images: %w", err)
		}
	case errors.Is(err, report.ErrReportNotFound):
		// no existing report for the pair
	default:
		return nil, fmt.Errorf("looking up latest report: %w", err)
	}

	sub := &submission.Submission{
		PatientID: p.ID,
		DoctorID:  doctor.user.ID,
		Images:    urls,
		Comment:   strings.TrimSpace(cmd.Comment),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		s.log.Error("failed to persist submission", zap.Error(err))
		return nil, fmt.Errorf("creating submission: %w", err)
	}

	s.log.Info("pathology submission created",
		zap.String("submission_id", sub.ID.String()),
		zap.String("patient_id", p.ID.String()),
		zap.String("doctor_id", doctor.user.ID.String()),
		zap.Int("images", len(urls)),
	)

	return s.resolveView(ctx, sub)
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id uuid.UUID) (*submission.View, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolveView(ctx, sub)
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, q *submission.ListSubmissionsQuery) ([]*submission.View, error) {
	subs, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	views := make([]*submission.View, 0, len(subs))
	for _, sub := range subs {
		v, err := s.resolveView(ctx, sub)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// resolveView decorates a submission with patient and doctor identity
// fields for display. Missing parties leave blanks rather than failing:
// submissions outlive the entities they reference.
func (s *SubmissionService) resolveView(ctx context.Context, sub *submission.Submission) (*submission.View, error) {
	v := &submission.View{
		Submission: *sub,
		Patient:    submission.Party{ID: sub.PatientID},
		Doctor:     submission.Party{ID: sub.DoctorID},
	}

	if p, err := s.patientRepo.GetByID(ctx, sub.PatientID); err == nil {
		v.Patient.Name = p.Name
		v.Patient.Email = p.Email
	}
	if u, err := s.userRepo.GetByID(ctx, sub.DoctorID); err == nil {
		v.Doctor.Name = u.Name
		v.Doctor.Email = u.Email
	}
	return v, nil
}

func validateSubmissionCommand(cmd *submission.CreateSubmissionCommand) error {
	var errs []string

	if cmd.PatientID == uuid.Nil {
		errs = append(errs, "patientId is required")
	}
	if cmd.DoctorID == uuid.Nil {
		errs = append(errs, "doctorId is required")
	}
	if strings.TrimSpace(cmd.Comment) == "" {
		errs = append(errs, "comment is required")
	}
	if len(cmd.Images) == 0 {
		errs = append(errs, "at least one image file is required")
	}
	if len(cmd.Images) > MaxImagesPerSubmission {
		errs = append(errs, fmt.Sprintf("at most %d images per submission", MaxImagesPerSubmission))
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// isNotFound treats gorm-style missing rows as not-found regardless of
// which repository surfaced them.
func isNotFound(err error) bool {
	return errors.Is(err, patient.ErrPatientNotFound) ||
		errors.Is(err, report.ErrReportNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
