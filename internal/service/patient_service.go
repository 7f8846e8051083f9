package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/internal/domain/report"
)

type PatientService struct {
	repo       patient.Repository
	reportRepo report.Repository
	log        *zap.Logger
}

func NewPatientService(repo patient.Repository, reportRepo report.Repository, log *zap.Logger) *PatientService {
	return &PatientService{repo: repo, reportRepo: reportRepo, log: log}
}

func (s *PatientService) CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand) (*patient.Patient, error) {
	if err := validateCreatePatientCommand(cmd); err != nil {
		return nil, err
	}

	p := &patient.Patient{
		Name:         strings.TrimSpace(cmd.Name),
		Email:        strings.ToLower(strings.TrimSpace(cmd.Email)),
		Age:          cmd.Age,
		Gender:       cmd.Gender,
		Address:      cmd.Address,
		ReportStatus: "Pending",
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, err
	}

	s.log.Info("patient created", zap.String("patient_id", p.ID.String()))
	return p, nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PatientService) GetPatientByEmail(ctx context.Context, email string) (*patient.Patient, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *PatientService) UpdatePatient(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	return s.repo.Update(ctx, id, cmd)
}

// DeletePatient removes the patient record. Reports that reference the
// patient are left in place; report listings remain queryable by id.
func (s *PatientService) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *PatientService) ListPatients(ctx context.Context) ([]*patient.Patient, error) {
	return s.repo.List(ctx)
}

func (s *PatientService) SearchPatients(ctx context.Context, query string) ([]*patient.Patient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*patient.Patient{}, nil
	}
	return s.repo.Search(ctx, query)
}

// AssignedPatients is the derived roster: the distinct patients across
// the doctor's reports, recomputed at query time. Unlike the stored
// roster set it cannot drift.
func (s *PatientService) AssignedPatients(ctx context.Context, doctorID uuid.UUID) ([]*patient.Patient, error) {
	ids, err := s.reportRepo.DistinctPatientIDs(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("resolving assigned patients: %w", err)
	}
	if len(ids) == 0 {
		return []*patient.Patient{}, nil
	}
	return s.repo.GetByIDs(ctx, ids)
}

func validateCreatePatientCommand(cmd *patient.CreatePatientCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(cmd.Email) == "" {
		errs = append(errs, "email is required")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
