package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/domain/patient"
)

// UserService serves user directory lookups and the stored doctor
// roster. The roster here is the cached link-row set maintained by
// pathology intake; the recomputed variant lives on PatientService.
type UserService struct {
	userRepo    UserRepository
	patientRepo patient.Repository
	roster      RosterRepository
	log         *zap.Logger
}

func NewUserService(userRepo UserRepository, patientRepo patient.Repository, roster RosterRepository, log *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, patientRepo: patientRepo, roster: roster, log: log}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// FindUser looks a user up by email, optionally constrained to a role.
func (s *UserService) FindUser(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, &ValidationError{Fields: []string{"email is required"}}
	}

	if role != "" {
		if !role.IsValid() {
			return nil, &ValidationError{Fields: []string{"role must be doctor, pathologist, or patient"}}
		}
		return s.userRepo.GetByEmailAndRole(ctx, email, role)
	}
	return s.userRepo.GetByEmail(ctx, email)
}

// RosterPatients returns the stored roster of a doctor: the patients
// linked by pathology submissions, in link order. Patients deleted since
// linking are skipped.
func (s *UserService) RosterPatients(ctx context.Context, doctorID uuid.UUID) ([]patient.Summary, error) {
	u, err := s.userRepo.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleDoctor {
		return nil, ErrUserNotFound
	}

	ids, err := s.roster.PatientIDs(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	if len(ids) == 0 {
		return []patient.Summary{}, nil
	}

	patients, err := s.patientRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading roster patients: %w", err)
	}

	// The IN lookup returns rows in arbitrary order; restore the
	// roster's link order.
	byID := make(map[uuid.UUID]*patient.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}
	summaries := make([]patient.Summary, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			summaries = append(summaries, p.Summarize())
		}
	}
	return summaries, nil
}
