package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/telemetry"
)

type fakeConsent struct {
	granted bool
	err     error
	calls   int
}

func (f *fakeConsent) Granted(_ context.Context, _, _ uuid.UUID, _ string) (bool, error) {
	f.calls++
	return f.granted, f.err
}

type fakeAudit struct {
	events []AccessEvent
	err    error
}

func (f *fakeAudit) Append(_ context.Context, e AccessEvent) error {
	f.events = append(f.events, e)
	return f.err
}

func newTestGate(consent *fakeConsent, audit *fakeAudit) (*Gate, *telemetry.Metrics) {
	metrics := telemetry.New()
	return NewGate(consent, audit, metrics, zerolog.Nop()), metrics
}

func clinician(hospitalID uuid.UUID) auth.Identity {
	return auth.Identity{
		UserID:     uuid.New(),
		Role:       auth.RoleClinician,
		HospitalID: &hospitalID,
	}
}

func patient(patientID uuid.UUID) auth.Identity {
	return auth.Identity{
		UserID:    uuid.New(),
		Role:      auth.RolePatient,
		PatientID: &patientID,
	}
}

func TestAuthorizeDecisionMatrix(t *testing.T) {
	hospitalID := uuid.New()
	patientID := uuid.New()

	tests := []struct {
		name         string
		actor        auth.Identity
		target       uuid.UUID
		override     bool
		granted      bool
		wantDecision Decision
		wantErr      error
	}{
		{
			name:         "patient reads own record",
			actor:        patient(patientID),
			target:       patientID,
			wantDecision: DecisionAllowed,
		},
		{
			name:         "patient reads another patient",
			actor:        patient(patientID),
			target:       uuid.New(),
			wantDecision: DecisionBlocked,
			wantErr:      ErrBlocked,
		},
		{
			name:         "clinician with consent",
			actor:        clinician(hospitalID),
			target:       patientID,
			granted:      true,
			wantDecision: DecisionAllowed,
		},
		{
			name:         "clinician without consent",
			actor:        clinician(hospitalID),
			target:       patientID,
			granted:      false,
			wantDecision: DecisionBlocked,
			wantErr:      ErrBlocked,
		},
		{
			name:         "clinician emergency override skips consent",
			actor:        clinician(hospitalID),
			target:       patientID,
			override:     true,
			granted:      false,
			wantDecision: DecisionEmergencyOverride,
		},
		{
			name:         "clinician without target patient",
			actor:        clinician(hospitalID),
			target:       uuid.Nil,
			wantDecision: DecisionBlocked,
			wantErr:      ErrMissingContext,
		},
		{
			name:         "clinician without hospital binding",
			actor:        auth.Identity{UserID: uuid.New(), Role: auth.RoleClinician},
			target:       patientID,
			wantDecision: DecisionBlocked,
			wantErr:      ErrMissingContext,
		},
		{
			name:         "prehospital role has no record access",
			actor:        auth.Identity{UserID: uuid.New(), Role: auth.RolePreHospital},
			target:       patientID,
			granted:      true,
			wantDecision: DecisionBlocked,
			wantErr:      ErrBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &fakeAudit{}
			gate, _ := newTestGate(&fakeConsent{granted: tt.granted}, audit)

			decision, err := gate.Authorize(context.Background(), Request{
				Actor:             tt.actor,
				PatientID:         tt.target,
				Action:            "read_record",
				Resource:          "/api/v1/test",
				EmergencyOverride: tt.override,
			})
			if decision != tt.wantDecision {
				t.Errorf("decision = %q, want %q", decision, tt.wantDecision)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if len(audit.events) != 1 {
				t.Fatalf("audit entries = %d, want exactly 1", len(audit.events))
			}
			if audit.events[0].Decision != tt.wantDecision {
				t.Errorf("audited decision = %q, want %q", audit.events[0].Decision, tt.wantDecision)
			}
		})
	}
}

func TestAuthorizeOverrideSkipsConsentLookup(t *testing.T) {
	consent := &fakeConsent{}
	gate, _ := newTestGate(consent, &fakeAudit{})

	decision, err := gate.Authorize(context.Background(), Request{
		Actor:             clinician(uuid.New()),
		PatientID:         uuid.New(),
		Action:            "commit_version",
		EmergencyOverride: true,
	})
	if err != nil || decision != DecisionEmergencyOverride {
		t.Fatalf("decision = %q err = %v", decision, err)
	}
	if consent.calls != 0 {
		t.Errorf("consent checked %d times during override, want 0", consent.calls)
	}
}

func TestAuthorizeConsentLookupFailure(t *testing.T) {
	lookupErr := errors.New("db down")
	audit := &fakeAudit{}
	gate, _ := newTestGate(&fakeConsent{err: lookupErr}, audit)

	decision, err := gate.Authorize(context.Background(), Request{
		Actor:     clinician(uuid.New()),
		PatientID: uuid.New(),
		Action:    "read_record",
	})
	if decision != DecisionBlocked {
		t.Errorf("decision = %q, want blocked on lookup failure", decision)
	}
	if !errors.Is(err, lookupErr) {
		t.Errorf("err = %v, want the lookup error surfaced", err)
	}
	if len(audit.events) != 1 {
		t.Errorf("audit entries = %d, want 1", len(audit.events))
	}
}

func TestAuthorizeAuditFailureDoesNotDeny(t *testing.T) {
	audit := &fakeAudit{err: errors.New("disk full")}
	gate, metrics := newTestGate(&fakeConsent{granted: true}, audit)

	decision, err := gate.Authorize(context.Background(), Request{
		Actor:     clinician(uuid.New()),
		PatientID: uuid.New(),
		Action:    "read_record",
	})
	if err != nil || decision != DecisionAllowed {
		t.Fatalf("decision = %q err = %v, audit failure must not deny", decision, err)
	}
	if got := metrics.Value(telemetry.AuditLogFailures); got != 1 {
		t.Errorf("audit failure counter = %d, want 1", got)
	}
}
