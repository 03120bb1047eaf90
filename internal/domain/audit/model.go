// Package audit persists the append-only access log. Every authorization
// gate decision lands here, allowed or not, so a patient can see exactly who
// touched (or tried to touch) their record and under what justification.
package audit

import (
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID         uuid.UUID  `json:"id"`
	ActorID    uuid.UUID  `json:"actor_id"`
	ActorRole  string     `json:"actor_role"`
	PatientID  *uuid.UUID `json:"patient_id,omitempty"`
	HospitalID *uuid.UUID `json:"hospital_id,omitempty"`
	Action     string     `json:"action"`
	Resource   string     `json:"resource"`
	Decision   string     `json:"decision"`
	CreatedAt  time.Time  `json:"created_at"`
}
