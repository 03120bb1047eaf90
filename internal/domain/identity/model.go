// Package identity holds the patient and hospital registries: the master
// records every other domain keys against. Patients are identified to humans
// by UHID (universal health id) and to the system by UUID.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/fhir"
)

type Patient struct {
	ID        uuid.UUID  `json:"id"`
	UHID      string     `json:"uhid"`
	FullName  string     `json:"full_name"`
	DOB       *time.Time `json:"dob,omitempty"`
	Sex       string     `json:"sex,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Hospital struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineEntry is one encounter in a patient's cross-hospital history,
// annotated with the id of its newest record version so a client can jump
// straight to the current state.
type TimelineEntry struct {
	EncounterID     uuid.UUID  `json:"encounter_id"`
	EncounterType   string     `json:"encounter_type"`
	StartedAt       time.Time  `json:"started_at"`
	HospitalCode    string     `json:"hospital_code"`
	HospitalName    string     `json:"hospital_name"`
	LatestVersionID *uuid.UUID `json:"latest_version_id,omitempty"`
	VersionCount    int        `json:"version_count"`
}

// ToFHIR renders the patient as a FHIR R4 Patient resource.
func (p *Patient) ToFHIR() map[string]interface{} {
	resource := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.ID.String(),
		"meta":         fhir.Meta{LastUpdated: p.CreatedAt},
		"identifier": []fhir.Identifier{
			{System: "urn:carelink:uhid", Value: p.UHID},
		},
	}
	if p.FullName != "" {
		parts := strings.Fields(p.FullName)
		name := fhir.HumanName{Text: p.FullName}
		if len(parts) > 1 {
			name.Family = parts[len(parts)-1]
			name.Given = parts[:len(parts)-1]
		} else {
			name.Given = parts
		}
		resource["name"] = []fhir.HumanName{name}
	}
	if p.Sex != "" {
		resource["gender"] = strings.ToLower(p.Sex)
	}
	if p.DOB != nil {
		resource["birthDate"] = p.DOB.Format("2006-01-02")
	}
	if p.Phone != "" {
		resource["telecom"] = []fhir.ContactPoint{{System: "phone", Value: p.Phone}}
	}
	return resource
}
