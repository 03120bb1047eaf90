// Package triage handles pre-hospital case intake: an ambulance crew
// submits a case, the classifier scores its urgency, and cases above the
// alert threshold page the routed hospital before the patient arrives.
package triage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCaseNotFound = errors.New("triage: case not found")
	// ErrClassifierUnavailable means the scoring service could not be
	// reached or answered with garbage; the submission is not persisted.
	ErrClassifierUnavailable = errors.New("triage: classifier unavailable")
)

type Vitals struct {
	HeartRate *float64 `json:"heart_rate,omitempty"`
	BPSys     *float64 `json:"bp_systolic,omitempty"`
	BPDia     *float64 `json:"bp_diastolic,omitempty"`
	SpO2      *float64 `json:"spo2,omitempty"`
	RespRate  *float64 `json:"resp_rate,omitempty"`
}

// MediaRef points at evidence captured in the field. Payload bytes are not
// stored here; only opaque references travel with the case.
type MediaRef struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

// Submission is the case as the crew reports it.
type Submission struct {
	PatientUHID string     `json:"patient_uhid,omitempty"`
	Symptoms    []string   `json:"symptoms"`
	Vitals      Vitals     `json:"vitals"`
	Age         *int       `json:"age,omitempty"`
	TraumaType  string     `json:"trauma_type,omitempty"`
	Location    string     `json:"location,omitempty"`
	Media       []MediaRef `json:"media,omitempty"`
}

// Classification is the scored verdict from the classifier, kept verbatim
// alongside the parsed fields so reprocessing never loses information.
type Classification struct {
	EmergencyType    string          `json:"emergency_type"`
	EmergencyClass   string          `json:"emergency_class"`
	Confidence       float64         `json:"confidence"`
	UrgencyScore     float64         `json:"urgency_score"`
	RecommendedSetup []string        `json:"recommended_setup,omitempty"`
	HospitalCode     string          `json:"hospital_code,omitempty"`
	RoutingRationale string          `json:"routing_rationale,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

type Case struct {
	ID             uuid.UUID       `json:"id"`
	AmbulanceID    string          `json:"ambulance_id"`
	Submission     Submission      `json:"submission"`
	Classification *Classification `json:"classification,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}
