package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/identity"
	"github.com/carelink/carelink/internal/platform/telemetry"
	"github.com/carelink/carelink/internal/platform/ws"
)

type mockRepo struct {
	alerts map[uuid.UUID]*Alert
}

func newMockRepo() *mockRepo {
	return &mockRepo{alerts: make(map[uuid.UUID]*Alert)}
}

func (m *mockRepo) Create(_ context.Context, a *Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.alerts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Alert, error) {
	if a, ok := m.alerts[id]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Alert, int, error) {
	var out []*Alert
	for _, a := range m.alerts {
		if a.HospitalID == hospitalID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Acknowledge(_ context.Context, id, by uuid.UUID, at time.Time) (*Alert, error) {
	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Acknowledged = true
	if a.AckedBy == nil {
		a.AckedBy = &by
		a.AckedAt = &at
	}
	return a, nil
}

type mockDirectory struct {
	byCode map[string]*identity.Hospital
}

func (m *mockDirectory) GetHospitalByCode(_ context.Context, code string) (*identity.Hospital, error) {
	if h, ok := m.byCode[code]; ok {
		return h, nil
	}
	return nil, identity.ErrNotFound
}

type captureBus struct {
	events []ws.Event
}

func (b *captureBus) Publish(_ context.Context, e ws.Event) {
	b.events = append(b.events, e)
}

func newTestService() (*Service, *mockRepo, *captureBus, *identity.Hospital, *identity.Hospital) {
	repo := newMockRepo()
	def := &identity.Hospital{ID: uuid.New(), Code: "HOSP-001", Name: "City General"}
	routed := &identity.Hospital{ID: uuid.New(), Code: "HOSP-007", Name: "Trauma Center"}
	directory := &mockDirectory{byCode: map[string]*identity.Hospital{
		def.Code:    def,
		routed.Code: routed,
	}}
	bus := &captureBus{}
	svc := NewService(repo, directory, bus, telemetry.New(), zerolog.Nop(), def.Code)
	return svc, repo, bus, def, routed
}

func TestRaisePersistsThenPublishes(t *testing.T) {
	svc, repo, bus, _, routed := newTestService()

	a, err := svc.Raise(context.Background(), RaiseParams{
		HospitalCode: "HOSP-007",
		Severity:     SeverityCritical,
		Title:        "Incoming critical case",
		Message:      "ETA 5 minutes",
	})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if a.HospitalID != routed.ID {
		t.Error("alert not routed to the coded hospital")
	}
	if _, ok := repo.alerts[a.ID]; !ok {
		t.Error("alert was not persisted")
	}
	if len(bus.events) != 1 || bus.events[0].HospitalCode != "HOSP-007" {
		t.Errorf("bus events = %+v, want one event on HOSP-007", bus.events)
	}
}

func TestRaiseCarriesPatientReference(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	withPatient, err := svc.Raise(context.Background(), RaiseParams{
		HospitalCode: "HOSP-007",
		PatientUHID:  "UH-1001",
		Title:        "Incoming known patient",
	})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	stored := repo.alerts[withPatient.ID]
	if stored.PatientUHID == nil || *stored.PatientUHID != "UH-1001" {
		t.Errorf("stored PatientUHID = %v, want UH-1001", stored.PatientUHID)
	}

	anonymous, err := svc.Raise(context.Background(), RaiseParams{
		HospitalCode: "HOSP-007",
		Title:        "Unidentified patient",
	})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if anonymous.PatientUHID != nil {
		t.Errorf("PatientUHID = %v, want nil when the crew has no identity", *anonymous.PatientUHID)
	}
}

func TestRaiseUnknownCodeFallsBackToDefault(t *testing.T) {
	svc, _, bus, def, _ := newTestService()

	a, err := svc.Raise(context.Background(), RaiseParams{
		HospitalCode: "HOSP-404",
		Title:        "Routing unknown",
	})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if a.HospitalID != def.ID {
		t.Error("unknown routing code did not fall back to the default hospital")
	}
	if bus.events[0].HospitalCode != def.Code {
		t.Errorf("published on %q, want default %q", bus.events[0].HospitalCode, def.Code)
	}
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Raise(ctx, RaiseParams{HospitalCode: "HOSP-001", Title: "x"})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}

	firstBy := uuid.New()
	first, err := svc.Acknowledge(ctx, a.ID, firstBy)
	if err != nil || !first.Acknowledged {
		t.Fatalf("first ack: %+v err = %v", first, err)
	}

	second, err := svc.Acknowledge(ctx, a.ID, uuid.New())
	if err != nil {
		t.Fatalf("second ack: %v", err)
	}
	if second.AckedBy == nil || *second.AckedBy != firstBy {
		t.Error("repeat ack overwrote the original acknowledger")
	}
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.Acknowledge(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
