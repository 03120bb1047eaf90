package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/carelink/carelink/internal/domain/identity"
	"github.com/carelink/carelink/internal/platform/auth"
)

// TokenIssuer mints session tokens; satisfied by the platform auth issuer.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

// HospitalDirectory resolves a user's hospital binding to its public code
// for embedding in the token; satisfied by the identity repository.
type HospitalDirectory interface {
	GetHospitalByID(ctx context.Context, id uuid.UUID) (*identity.Hospital, error)
}

type Service struct {
	repo      Repository
	issuer    TokenIssuer
	hospitals HospitalDirectory
	logger    zerolog.Logger
}

func NewService(repo Repository, issuer TokenIssuer, hospitals HospitalDirectory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, hospitals: hospitals, logger: logger}
}

// Login verifies the credential and returns a signed session token. Every
// failure path collapses to ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, role, loginID, password string) (string, *User, error) {
	u, err := s.repo.GetByLogin(ctx, role, loginID)
	if errors.Is(err, ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.logger.Warn().Str("role", role).Str("login_id", loginID).Msg("failed login attempt")
		return "", nil, ErrInvalidCredentials
	}

	id := auth.Identity{
		UserID:     u.ID,
		Role:       u.Role,
		LoginID:    u.LoginID,
		HospitalID: u.HospitalID,
		PatientID:  u.PatientID,
	}
	if u.HospitalID != nil {
		hosp, err := s.hospitals.GetHospitalByID(ctx, *u.HospitalID)
		if err != nil {
			return "", nil, fmt.Errorf("resolving hospital: %w", err)
		}
		id.HospitalCode = hosp.Code
	}

	token, err := s.issuer.Issue(id)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// CreateUser provisions a credential with a freshly hashed password.
func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	if u.LoginID == "" || u.Role == "" {
		return fmt.Errorf("login_id and role are required")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.repo.Create(ctx, u)
}
