package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
