package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/authz"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append satisfies the gate's audit sink. Entries are immutable once
// written; there is no update or delete path anywhere in this package.
func (s *Service) Append(ctx context.Context, event authz.AccessEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return s.repo.Append(ctx, &Entry{
		ActorID:    event.ActorID,
		ActorRole:  event.ActorRole,
		PatientID:  event.PatientID,
		HospitalID: event.HospitalID,
		Action:     event.Action,
		Resource:   event.Resource,
		Decision:   string(event.Decision),
		CreatedAt:  occurredAt,
	})
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListForActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByActor(ctx, actorID, limit, offset)
}
