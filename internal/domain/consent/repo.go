package consent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert creates or updates the single (patient, hospital, scope) row
	// and returns its current state.
	Upsert(ctx context.Context, patientID, hospitalID uuid.UUID, scope string, granted bool) (*Consent, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*View, error)
	Granted(ctx context.Context, patientID, hospitalID uuid.UUID, scope string) (bool, error)
}
