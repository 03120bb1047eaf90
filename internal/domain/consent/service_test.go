package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/identity"
)

type consentKey struct {
	patient, hospital uuid.UUID
	scope             string
}

type mockRepo struct {
	rows map[consentKey]*Consent
}

func newMockRepo() *mockRepo {
	return &mockRepo{rows: make(map[consentKey]*Consent)}
}

func (m *mockRepo) Upsert(_ context.Context, patientID, hospitalID uuid.UUID, scope string, granted bool) (*Consent, error) {
	key := consentKey{patientID, hospitalID, scope}
	if existing, ok := m.rows[key]; ok {
		existing.Granted = granted
		existing.UpdatedAt = time.Now().UTC()
		return existing, nil
	}
	c := &Consent{
		ID:         uuid.New(),
		PatientID:  patientID,
		HospitalID: hospitalID,
		Scope:      scope,
		Granted:    granted,
		UpdatedAt:  time.Now().UTC(),
	}
	m.rows[key] = c
	return c, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*View, error) {
	var views []*View
	for _, c := range m.rows {
		if c.PatientID == patientID {
			views = append(views, &View{Consent: *c})
		}
	}
	return views, nil
}

func (m *mockRepo) Granted(_ context.Context, patientID, hospitalID uuid.UUID, scope string) (bool, error) {
	if c, ok := m.rows[consentKey{patientID, hospitalID, scope}]; ok {
		return c.Granted, nil
	}
	return false, nil
}

type mockHospitals struct {
	byCode map[string]*identity.Hospital
}

func (m *mockHospitals) GetHospitalByCode(_ context.Context, code string) (*identity.Hospital, error) {
	if h, ok := m.byCode[code]; ok {
		return h, nil
	}
	return nil, identity.ErrNotFound
}

func newTestService() (*Service, *mockRepo, *identity.Hospital) {
	repo := newMockRepo()
	hosp := &identity.Hospital{ID: uuid.New(), Code: "HOSP-001", Name: "City General"}
	hospitals := &mockHospitals{byCode: map[string]*identity.Hospital{hosp.Code: hosp}}
	return NewService(repo, hospitals, zerolog.Nop()), repo, hosp
}

func TestToggleFlipsSingleRow(t *testing.T) {
	svc, repo, hosp := newTestService()
	ctx := context.Background()
	patientID := uuid.New()

	first, err := svc.Toggle(ctx, patientID, "HOSP-001", "", true)
	if err != nil {
		t.Fatalf("Toggle grant: %v", err)
	}
	if !first.Granted || first.Scope != "ehr" {
		t.Errorf("first toggle = %+v, want granted with default scope", first)
	}

	second, err := svc.Toggle(ctx, patientID, "HOSP-001", "", false)
	if err != nil {
		t.Fatalf("Toggle revoke: %v", err)
	}
	if second.Granted {
		t.Error("revoke did not flip granted off")
	}
	if second.ID != first.ID {
		t.Error("toggle created a second row instead of updating in place")
	}
	if len(repo.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(repo.rows))
	}

	granted, err := svc.Granted(ctx, patientID, hosp.ID, ScopeEHR)
	if err != nil || granted {
		t.Errorf("Granted = %v err = %v after revoke, want false", granted, err)
	}
}

func TestToggleUnknownHospital(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Toggle(context.Background(), uuid.New(), "HOSP-404", "", true)
	if !errors.Is(err, ErrHospitalNotFound) {
		t.Errorf("err = %v, want ErrHospitalNotFound", err)
	}
}

func TestGrantedDefaultsToFalse(t *testing.T) {
	svc, _, hosp := newTestService()
	granted, err := svc.Granted(context.Background(), uuid.New(), hosp.ID, ScopeEHR)
	if err != nil {
		t.Fatalf("Granted: %v", err)
	}
	if granted {
		t.Error("absent consent row must read as not granted")
	}
}
