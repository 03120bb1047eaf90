// Package account holds user credentials and the login flow. Passwords are
// stored only as bcrypt hashes; there are no fixed access codes, fallback
// passwords, or any other path around CompareHashAndPassword.
package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials covers both unknown logins and wrong passwords
	// so responses do not reveal which half failed.
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	ErrNotFound           = errors.New("account: user not found")
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	LoginID      string     `json:"login_id"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	HospitalID   *uuid.UUID `json:"hospital_id,omitempty"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
