// Package record implements the versioned clinical record store. An
// encounter is an episode of care at one hospital; its clinical content is
// an append-only chain of versions, each a full JSON snapshot pointing at
// the version it was derived from. History is never rewritten: corrections
// are new versions, and two clinicians committing against the same parent
// fork the chain rather than overwrite each other.
package record

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/fhir"
)

var (
	ErrEncounterNotFound = errors.New("record: encounter not found")
	ErrVersionNotFound   = errors.New("record: version not found")
	ErrPatientNotFound   = errors.New("record: patient not found")
	ErrHospitalNotFound  = errors.New("record: hospital not found")
	// ErrInvalidParent means the named parent version does not exist or
	// belongs to a different encounter.
	ErrInvalidParent = errors.New("record: invalid parent version")
	// ErrWrongHospital means a clinician tried to write into an encounter
	// hosted by a hospital other than their own.
	ErrWrongHospital = errors.New("record: encounter belongs to another hospital")
	// ErrDiffScope means a diff was requested across two encounters.
	ErrDiffScope = errors.New("record: versions belong to different encounters")
)

type Encounter struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	HospitalID    uuid.UUID `json:"hospital_id"`
	EncounterType string    `json:"encounter_type"`
	StartedAt     time.Time `json:"started_at"`
	CreatedBy     uuid.UUID `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Version is one immutable snapshot of an encounter's clinical content.
// Patient and hospital ids are denormalized from the encounter so access
// decisions and exports never need a join.
type Version struct {
	ID              uuid.UUID              `json:"id"`
	EncounterID     uuid.UUID              `json:"encounter_id"`
	PatientID       uuid.UUID              `json:"patient_id"`
	HospitalID      uuid.UUID              `json:"hospital_id"`
	ParentVersionID *uuid.UUID             `json:"parent_version_id,omitempty"`
	CommitMessage   string                 `json:"commit_message"`
	Payload         map[string]interface{} `json:"payload"`
	CreatedBy       uuid.UUID              `json:"created_by"`
	CreatedAt       time.Time              `json:"created_at"`
}

// VersionMeta is a version without its payload, for history listings.
type VersionMeta struct {
	ID              uuid.UUID  `json:"id"`
	EncounterID     uuid.UUID  `json:"encounter_id"`
	ParentVersionID *uuid.UUID `json:"parent_version_id,omitempty"`
	CommitMessage   string     `json:"commit_message"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToFHIR renders the encounter as a FHIR R4 Encounter resource.
func (e *Encounter) ToFHIR() map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Encounter",
		"id":           e.ID.String(),
		"meta":         fhir.Meta{LastUpdated: e.CreatedAt},
		"status":       "in-progress",
		"class": fhir.Coding{
			System: "http://terminology.hl7.org/CodeSystem/v3-ActCode",
			Code:   encounterClassCode(e.EncounterType),
		},
		"type": []fhir.CodeableConcept{{Text: e.EncounterType}},
		"subject": fhir.Reference{
			Reference: fhir.FormatReference("Patient", e.PatientID.String()),
		},
		"serviceProvider": fhir.Reference{
			Reference: fhir.FormatReference("Organization", e.HospitalID.String()),
		},
		"period": fhir.Period{Start: &e.StartedAt},
	}
}

func encounterClassCode(encounterType string) string {
	switch encounterType {
	case "emergency":
		return "EMER"
	case "inpatient", "ipd":
		return "IMP"
	default:
		return "AMB"
	}
}

// ToFHIRObservation renders the version's vitals as a FHIR R4 Observation.
// Non-vital payload content has no standard mapping and is omitted.
func (v *Version) ToFHIRObservation() map[string]interface{} {
	resource := map[string]interface{}{
		"resourceType": "Observation",
		"id":           v.ID.String(),
		"meta":         fhir.Meta{VersionID: v.ID.String(), LastUpdated: v.CreatedAt},
		"status":       "final",
		"code": fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: "http://loinc.org", Code: "8716-3", Display: "Vital signs"}},
			Text:   "Vital signs snapshot",
		},
		"subject": fhir.Reference{
			Reference: fhir.FormatReference("Patient", v.PatientID.String()),
		},
		"encounter": fhir.Reference{
			Reference: fhir.FormatReference("Encounter", v.EncounterID.String()),
		},
		"effectiveDateTime": v.CreatedAt,
	}

	vitals, ok := v.Payload["vitals"].(map[string]interface{})
	if !ok {
		return resource
	}
	var components []map[string]interface{}
	for _, key := range sortedKeys(vitals) {
		components = append(components, map[string]interface{}{
			"code":        fhir.CodeableConcept{Text: key},
			"valueString": fmt.Sprintf("%v", vitals[key]),
		})
	}
	resource["component"] = components
	return resource
}
