// Package alert persists and fans out hospital alerts. Every alert is
// written to the feed before it is pushed on the realtime bus, so a
// clinician who was offline at publish time still finds it on reconnect.
package alert

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("alert: not found")

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Alert struct {
	ID           uuid.UUID  `json:"id"`
	HospitalID   uuid.UUID  `json:"hospital_id"`
	HospitalCode string     `json:"hospital_code"`
	CaseID       *uuid.UUID `json:"case_id,omitempty"`
	PatientUHID  *string    `json:"patient_uhid,omitempty"`
	Severity     Severity   `json:"severity"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Acknowledged bool       `json:"acknowledged"`
	AckedBy      *uuid.UUID `json:"acked_by,omitempty"`
	AckedAt      *time.Time `json:"acked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
