package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT payload for all three actor classes.
type Claims struct {
	Role         string `json:"role"`
	LoginID      string `json:"login_id"`
	HospitalID   string `json:"hospital_id,omitempty"`
	HospitalCode string `json:"hospital_code,omitempty"`
	PatientID    string `json:"patient_id,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HMAC tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given identity.
func (i *Issuer) Issue(id Identity) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role:         id.Role,
		LoginID:      id.LoginID,
		HospitalCode: id.HospitalCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	if id.HospitalID != nil {
		claims.HospitalID = id.HospitalID.String()
	}
	if id.PatientID != nil {
		claims.PatientID = id.PatientID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a signed token back into an Identity.
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid subject: %w", err)
	}

	id := Identity{
		UserID:       userID,
		Role:         claims.Role,
		LoginID:      claims.LoginID,
		HospitalCode: claims.HospitalCode,
	}
	if claims.HospitalID != "" {
		hid, err := uuid.Parse(claims.HospitalID)
		if err != nil {
			return Identity{}, fmt.Errorf("invalid hospital_id claim: %w", err)
		}
		id.HospitalID = &hid
	}
	if claims.PatientID != "" {
		pid, err := uuid.Parse(claims.PatientID)
		if err != nil {
			return Identity{}, fmt.Errorf("invalid patient_id claim: %w", err)
		}
		id.PatientID = &pid
	}
	return id, nil
}
