package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("identity: not found")

type Repository interface {
	CreatePatient(ctx context.Context, p *Patient) error
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByUHID(ctx context.Context, uhid string) (*Patient, error)
	SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)

	CreateHospital(ctx context.Context, h *Hospital) error
	GetHospitalByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	GetHospitalByCode(ctx context.Context, code string) (*Hospital, error)
	ListHospitals(ctx context.Context) ([]*Hospital, error)
	HospitalExists(ctx context.Context, id uuid.UUID) (bool, error)

	Timeline(ctx context.Context, patientID uuid.UUID) ([]*TimelineEntry, error)
}
