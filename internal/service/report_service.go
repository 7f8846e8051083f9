package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/internal/domain/report"
)

// ReportService is the report/patient reconciliation core. Reports are
// created on two independent paths (direct creation and
// save-after-analysis) and mutated by status updates and AI-verdict
// attachment; the patient registry's derived fields (detectedDisease,
// reportStatus, report references) are propagated here. The write paths
// are deliberately asymmetric — only save-after-analysis and AI-attach
// touch the patient registry — and multi-entity sequences are not
// atomic. See the repository DESIGN notes for the rationale.
type ReportService struct {
	repo        report.Repository
	patientRepo patient.Repository
	userRepo    UserRepository
	notifier    *NotificationService
	log         *zap.Logger
}

func NewReportService(
	repo report.Repository,
	patientRepo patient.Repository,
	userRepo UserRepository,
	notifier *NotificationService,
	log *zap.Logger,
) *ReportService {
	return &ReportService{
		repo:        repo,
		patientRepo: patientRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		log:         log,
	}
}

// CreateReport is the direct-creation path: the (patient, doctor) pair
// is resolved by email and the report starts Pending. The new report is
// NOT pushed onto the patient's reference list — only the
// save-after-analysis path links; listings by patient id remain complete
// because they query reports directly.
func (s *ReportService) CreateReport(ctx context.Context, cmd *report.CreateReportCommand) (*report.Report, error) {
	if err := validateCreateReportCommand(cmd); err != nil {
		return nil, err
	}

	p, err := s.patientRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(cmd.PatientEmail)))
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("resolving patient: %w", err)
	}

	doctor, err := s.userRepo.GetByEmailAndRole(ctx, strings.ToLower(strings.TrimSpace(cmd.DoctorEmail)), domain.RoleDoctor)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, report.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("resolving doctor: %w", err)
	}

	r := &report.Report{
		PatientID:   p.ID,
		DoctorID:    doctor.ID,
		Type:        cmd.Type,
		Date:        time.Now(),
		Status:      report.StatusPending,
		Diagnosis:   cmd.Diagnosis,
		Stage:       cmd.Stage,
		DoctorNotes: cmd.DoctorNotes,
		Images:      cmd.Images,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.log.Error("failed to create report", zap.Error(err))
		return nil, fmt.Errorf("creating report: %w", err)
	}

	s.notifier.NotifyAsync(doctor.ID, p.ID, doctor.ID, domain.NotificationNewReport,
		fmt.Sprintf("New report uploaded for patient %s", p.Name))

	s.log.Info("report created",
		zap.String("report_id", r.ID.String()),
		zap.String("patient_id", p.ID.String()),
		zap.String("doctor_id", doctor.ID.String()),
	)

	return r, nil
}

// SaveReport is the save-after-analysis path. The report persists first;
// the patient registry is then reconciled: report reference appended,
// reportStatus mirrored, and detectedDisease taken from the AI class,
// falling back to the stage, else left untouched. A missing patient
// after the report has persisted is a partial success — the report
// stands unlinked and the result says so.
func (s *ReportService) SaveReport(ctx context.Context, cmd *report.SaveReportCommand) (*report.SaveResult, error) {
	if err := validateSaveReportCommand(cmd); err != nil {
		return nil, err
	}

	r := &report.Report{
		PatientID:  cmd.PatientID,
		DoctorID:   cmd.DoctorID,
		Type:       cmd.Type,
		Date:       time.Now(),
		Status:     cmd.Status,
		Stage:      cmd.Stage,
		Images:     cmd.Images,
		AIAnalysis: cmd.AIAnalysis,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.log.Error("failed to save report", zap.Error(err))
		return nil, fmt.Errorf("saving report: %w", err)
	}

	p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
	if err != nil {
		s.log.Error("patient not found after saving report; report left unlinked",
			zap.String("report_id", r.ID.String()),
			zap.String("patient_id", cmd.PatientID.String()),
			zap.Error(err),
		)
		return &report.SaveResult{Report: r, Linked: false}, nil
	}

	p.LinkReport(r.ID)
	p.ReportStatus = string(r.Status)
	if r.AIAnalysis != nil && r.AIAnalysis.Class != "" {
		p.DetectedDisease = r.AIAnalysis.Class
	} else if r.Stage != "" {
		p.DetectedDisease = r.Stage
	}

	if err := s.patientRepo.Save(ctx, p); err != nil {
		// The report is already committed; this is the documented
		// non-atomic gap between the two writes.
		s.log.Error("failed to update patient after saving report", zap.Error(err))
		return nil, fmt.Errorf("updating patient after report save: %w", err)
	}

	s.log.Info("report saved and linked to patient",
		zap.String("report_id", r.ID.String()),
		zap.String("patient_id", p.ID.String()),
	)

	return &report.SaveResult{Report: r, Linked: true}, nil
}

// UpdateReport mutates an existing report. A strict status change emits
// exactly one status-change notification addressed to the patient. The
// patient registry is not touched here; that propagation belongs to the
// save-after-analysis and AI-attach paths only.
func (s *ReportService) UpdateReport(ctx context.Context, id uuid.UUID, cmd *report.UpdateReportCommand) (*report.Report, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousStatus := existing.Status

	updated, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	if cmd.Status != nil && *cmd.Status != previousStatus {
		s.notifier.NotifyAsync(updated.PatientID, updated.PatientID, updated.DoctorID,
			domain.NotificationReportStatusChange,
			fmt.Sprintf("Your report status has been updated to %s", *cmd.Status))
	}

	return updated, nil
}

// AttachVerdict applies an AI classification to a report: the report
// moves to the "AI Analyzed" sentinel status with the predicted class as
// its diagnosis, and the patient's detectedDisease/reportStatus mirror
// the same values. A failed patient lookup is skipped, not fatal — the
// report's verdict stands on its own.
func (s *ReportService) AttachVerdict(ctx context.Context, reportID uuid.UUID, predictedClass string) (*report.Report, error) {
	if strings.TrimSpace(predictedClass) == "" {
		return nil, &ValidationError{Fields: []string{"predicted_class is required"}}
	}

	r, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	r.AttachVerdict(predictedClass)
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving report verdict: %w", err)
	}

	p, err := s.patientRepo.GetByID(ctx, r.PatientID)
	if err != nil {
		s.log.Warn("patient lookup failed during verdict attach; patient fields not updated",
			zap.String("report_id", r.ID.String()),
			zap.String("patient_id", r.PatientID.String()),
			zap.Error(err),
		)
		return r, nil
	}

	p.DetectedDisease = predictedClass
	p.ReportStatus = string(report.StatusAIAnalyzed)
	if err := s.patientRepo.Save(ctx, p); err != nil {
		s.log.Warn("failed to update patient during verdict attach",
			zap.String("patient_id", p.ID.String()),
			zap.Error(err),
		)
	}

	return r, nil
}

// DeleteReport removes the report record only. The patient's reference
// list and detectedDisease/reportStatus fields are left as they were —
// a non-cascading delete, kept as contract.
func (s *ReportService) DeleteReport(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *ReportService) GetReport(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ReportService) ListReports(ctx context.Context) ([]*report.Report, error) {
	return s.repo.List(ctx)
}

func (s *ReportService) DoctorReports(ctx context.Context, doctorID uuid.UUID) ([]*report.Report, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

func (s *ReportService) PatientReports(ctx context.Context, patientID uuid.UUID) ([]*report.Report, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func validateCreateReportCommand(cmd *report.CreateReportCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.PatientEmail) == "" {
		errs = append(errs, "patientEmail is required")
	}
	if strings.TrimSpace(cmd.DoctorEmail) == "" {
		errs = append(errs, "doctorEmail is required")
	}
	if strings.TrimSpace(cmd.Type) == "" {
		errs = append(errs, "type is required")
	}
	if len(cmd.Images) == 0 {
		errs = append(errs, "at least one image file is required")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validateSaveReportCommand(cmd *report.SaveReportCommand) error {
	var errs []string

	if cmd.PatientID == uuid.Nil {
		errs = append(errs, "patient is required")
	}
	if cmd.DoctorID == uuid.Nil {
		errs = append(errs, "doctor is required")
	}
	if strings.TrimSpace(cmd.Type) == "" {
		errs = append(errs, "type is required")
	}
	if cmd.Status == "" {
		errs = append(errs, "status is required")
	}
	if len(cmd.Images) == 0 {
		errs = append(errs, "images are required")
	}

	// An analysis block is all-or-nothing: a partial verdict is worse
	// than none.
	if a := cmd.AIAnalysis; a != nil {
		if a.Class == "" {
			errs = append(errs, "aiAnalysis.class is required")
		}
		if a.SaliencyImage == "" {
			errs = append(errs, "aiAnalysis.saliencyImage is required")
		}
		if a.GradcamImage == "" {
			errs = append(errs, "aiAnalysis.gradcamImage is required")
		}
		if a.DoctorRemarks == "" {
			errs = append(errs, "aiAnalysis.doctorRemarks is required")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
