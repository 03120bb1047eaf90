package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	p.UHID = strings.TrimSpace(p.UHID)
	if p.UHID == "" {
		return fmt.Errorf("uhid is required")
	}
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.CreatePatient(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatientByID(ctx, id)
}

func (s *Service) GetPatientByUHID(ctx context.Context, uhid string) (*Patient, error) {
	return s.repo.GetPatientByUHID(ctx, strings.TrimSpace(uhid))
}

func (s *Service) SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, fmt.Errorf("search query is required")
	}
	return s.repo.SearchPatients(ctx, query, limit, offset)
}

func (s *Service) RegisterHospital(ctx context.Context, h *Hospital) error {
	h.Code = strings.ToUpper(strings.TrimSpace(h.Code))
	if h.Code == "" {
		return fmt.Errorf("code is required")
	}
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.CreateHospital(ctx, h)
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.repo.GetHospitalByID(ctx, id)
}

func (s *Service) GetHospitalByCode(ctx context.Context, code string) (*Hospital, error) {
	return s.repo.GetHospitalByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) ListHospitals(ctx context.Context) ([]*Hospital, error) {
	return s.repo.ListHospitals(ctx)
}

func (s *Service) Timeline(ctx context.Context, patientID uuid.UUID) ([]*TimelineEntry, error) {
	if exists, err := s.repo.PatientExists(ctx, patientID); err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrNotFound
	}
	return s.repo.Timeline(ctx, patientID)
}
