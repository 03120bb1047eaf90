package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/authz"
)

type mockRepo struct {
	entries []*Entry
}

func (m *mockRepo) Append(_ context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var matched []*Entry
	for _, e := range m.entries {
		if e.PatientID != nil && *e.PatientID == patientID {
			matched = append(matched, e)
		}
	}
	return matched, len(matched), nil
}

func (m *mockRepo) ListByActor(_ context.Context, actorID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var matched []*Entry
	for _, e := range m.entries {
		if e.ActorID == actorID {
			matched = append(matched, e)
		}
	}
	return matched, len(matched), nil
}

func TestAppendMapsGateEvent(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	patientID := uuid.New()
	hospitalID := uuid.New()
	occurred := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := svc.Append(context.Background(), authz.AccessEvent{
		ActorID:    uuid.New(),
		ActorRole:  "clinician",
		PatientID:  &patientID,
		HospitalID: &hospitalID,
		Action:     "read_record",
		Resource:   "/api/v1/ehr/versions/abc",
		Decision:   authz.DecisionEmergencyOverride,
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.Decision != "emergency_override" {
		t.Errorf("Decision = %q, want emergency_override", e.Decision)
	}
	if !e.CreatedAt.Equal(occurred) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, occurred)
	}
}

func TestAppendDefaultsTimestamp(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	if err := svc.Append(context.Background(), authz.AccessEvent{
		ActorID:   uuid.New(),
		ActorRole: "patient",
		Action:    "read_timeline",
		Decision:  authz.DecisionAllowed,
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if repo.entries[0].CreatedAt.IsZero() {
		t.Error("zero OccurredAt was not defaulted")
	}
}

func TestListForPatientFiltersOthers(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	mine := uuid.New()
	other := uuid.New()
	for _, pid := range []uuid.UUID{mine, other, mine} {
		p := pid
		_ = svc.Append(ctx, authz.AccessEvent{
			ActorID:   uuid.New(),
			ActorRole: "clinician",
			PatientID: &p,
			Action:    "read_record",
			Decision:  authz.DecisionAllowed,
		})
	}

	entries, total, err := svc.ListForPatient(ctx, mine, 20, 0)
	if err != nil {
		t.Fatalf("ListForPatient: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Errorf("total = %d len = %d, want 2/2", total, len(entries))
	}
}
