package consent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/identity"
)

var ErrHospitalNotFound = errors.New("consent: hospital not found")

// HospitalDirectory resolves hospital codes; satisfied by the identity
// repository.
type HospitalDirectory interface {
	GetHospitalByCode(ctx context.Context, code string) (*identity.Hospital, error)
}

type Service struct {
	repo      Repository
	hospitals HospitalDirectory
	logger    zerolog.Logger
}

func NewService(repo Repository, hospitals HospitalDirectory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, hospitals: hospitals, logger: logger}
}

// Toggle sets the patient's grant for one hospital. The hospital is named by
// its public code since that is what patients see.
func (s *Service) Toggle(ctx context.Context, patientID uuid.UUID, hospitalCode, scope string, granted bool) (*Consent, error) {
	if scope == "" {
		scope = ScopeEHR
	}
	hosp, err := s.hospitals.GetHospitalByCode(ctx, hospitalCode)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrHospitalNotFound, hospitalCode)
	}
	if err != nil {
		return nil, err
	}

	c, err := s.repo.Upsert(ctx, patientID, hosp.ID, scope, granted)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("patient_id", patientID.String()).
		Str("hospital_code", hosp.Code).
		Str("scope", scope).
		Bool("granted", granted).
		Msg("consent toggled")
	return c, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*View, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Granted implements the check the authorization gate consults.
func (s *Service) Granted(ctx context.Context, patientID, hospitalID uuid.UUID, scope string) (bool, error) {
	return s.repo.Granted(ctx, patientID, hospitalID, scope)
}
