package triage

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	ListByAmbulance(ctx context.Context, ambulanceID string, limit, offset int) ([]*Case, int, error)
}
