// Package auth issues and verifies the platform's bearer tokens and resolves
// them into an explicit Identity carried on the request context. Every
// downstream decision (role checks, the authorization gate) works off that
// Identity; nothing reads ambient session state.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Actor roles. Clinicians belong to exactly one home hospital; patients carry
// their own patient id; pre-hospital staff can only submit cases.
const (
	RoleClinician   = "clinician"
	RolePatient     = "patient"
	RolePreHospital = "prehospital"
	RoleAdmin       = "admin"
)

// Identity is the resolved caller of a request.
type Identity struct {
	UserID       uuid.UUID
	Role         string
	LoginID      string
	HospitalID   *uuid.UUID
	HospitalCode string
	PatientID    *uuid.UUID
}

// IsClinical reports whether the identity is held to the consent rules for
// clinician-class access (clinicians and admins).
func (id Identity) IsClinical() bool {
	return id.Role == RoleClinician || id.Role == RoleAdmin
}

type identityKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by the bearer middleware.
// The second return is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
