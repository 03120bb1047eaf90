// Package consent manages the per-hospital access grants patients control.
// A consent row is keyed (patient, hospital, scope); toggling flips the
// granted flag in place rather than piling up rows, so the current state of
// a grant is always a single row and the full change history lives in the
// access log instead.
package consent

import (
	"time"

	"github.com/google/uuid"
)

// ScopeEHR covers clinical record access and is the only scope the
// platform toggles today. The column exists so finer scopes can be added
// without a schema change.
const ScopeEHR = "ehr"

type Consent struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	HospitalID uuid.UUID `json:"hospital_id"`
	Scope      string    `json:"scope"`
	Granted    bool      `json:"granted"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// View is a consent joined with hospital identity for patient-facing lists.
type View struct {
	Consent
	HospitalCode string `json:"hospital_code"`
	HospitalName string `json:"hospital_name"`
}
