package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/internal/domain/patient"
	"github.com/oncolab/leukoflow/pkg/auth"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmailAndRole(ctx context.Context, email string, role domain.Role) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type RegisterCommand struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Age      int
	Gender   string
	Address  string
}

type AuthService struct {
	userRepo    UserRepository
	patientRepo patient.Repository
	jwtManager  *auth.JWTManager
	log         *zap.Logger
}

func NewAuthService(userRepo UserRepository, patientRepo patient.Repository, jwtManager *auth.JWTManager, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, patientRepo: patientRepo, jwtManager: jwtManager, log: log}
}

// Register creates a user account. Doctor and pathologist accounts carry
// a bcrypt password hash; patient accounts are passwordless and also get
// a linked clinical patient record.
func (s *AuthService) Register(ctx context.Context, cmd *RegisterCommand) (*domain.User, error) {
	if err := validateRegisterCommand(cmd); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email uniqueness: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	u := &domain.User{
		Name:    strings.TrimSpace(cmd.Name),
		Email:   email,
		Role:    cmd.Role,
		Age:     cmd.Age,
		Gender:  cmd.Gender,
		Address: cmd.Address,
	}

	if cmd.Role.RequiresPassword() {
		hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if cmd.Role == domain.RolePatient {
		p := &patient.Patient{
			Name:         u.Name,
			Email:        email,
			Age:          cmd.Age,
			Gender:       cmd.Gender,
			Address:      cmd.Address,
			ReportStatus: "Pending",
		}
		if err := s.patientRepo.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("creating patient record: %w", err)
		}
		u.PatientID = &p.ID
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		s.log.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.log.Info("user registered",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
	)

	return u, nil
}

// Login authenticates a user for a declared role and issues a bearer
// token pair. Patient accounts authenticate by email alone; this mirrors
// how patient accounts are provisioned without credentials.
func (s *AuthService) Login(ctx context.Context, email, password string, role domain.Role, ip string) (*domain.TokenPair, *domain.User, error) {
	if !role.IsValid() {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmailAndRole(ctx, strings.ToLower(strings.TrimSpace(email)), role)
	if err != nil {
		// Use bcrypt dummy hash to prevent timing-based user enumeration.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, nil, ErrInvalidCredentials
	}

	if role.RequiresPassword() {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			s.log.Warn("failed login attempt",
				zap.String("email", email),
				zap.String("ip", ip),
			)
			return nil, nil, ErrInvalidCredentials
		}
	}

	claims := &domain.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		PatientID: user.PatientID,
	}

	pair, err := s.jwtManager.GenerateTokenPair(claims)
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return pair, user, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	updatedClaims := &domain.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		PatientID: user.PatientID,
	}

	return s.jwtManager.GenerateTokenPair(updatedClaims)
}

func validateRegisterCommand(cmd *RegisterCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(cmd.Email) == "" {
		errs = append(errs, "email is required")
	}
	if !cmd.Role.IsValid() {
		errs = append(errs, "role must be doctor, pathologist, or patient")
	}
	if cmd.Role.RequiresPassword() && cmd.Password == "" {
		errs = append(errs, "password is required")
	}
	if cmd.Age <= 0 {
		errs = append(errs, "age is required")
	}
	if strings.TrimSpace(cmd.Gender) == "" {
		errs = append(errs, "gender is required")
	}
	if strings.TrimSpace(cmd.Address) == "" {
		errs = append(errs, "address is required")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
