package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Alert, int, error)
	// Acknowledge marks the alert handled. Acknowledging an already-handled
	// alert keeps the original acknowledger and timestamp.
	Acknowledge(ctx context.Context, id, by uuid.UUID, at time.Time) (*Alert, error)
}
