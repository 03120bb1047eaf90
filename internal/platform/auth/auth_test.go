package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func testIssuer() *Issuer {
	return NewIssuer("0123456789abcdef0123456789abcdef", time.Hour)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := testIssuer()
	hospitalID := uuid.New()

	id := Identity{
		UserID:       uuid.New(),
		Role:         RoleClinician,
		LoginID:      "HOSP-001-dr1",
		HospitalID:   &hospitalID,
		HospitalCode: "HOSP-001",
	}

	token, err := issuer.Issue(id)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}

	if got.UserID != id.UserID {
		t.Errorf("UserID = %v, want %v", got.UserID, id.UserID)
	}
	if got.Role != RoleClinician {
		t.Errorf("Role = %q, want clinician", got.Role)
	}
	if got.HospitalID == nil || *got.HospitalID != hospitalID {
		t.Errorf("HospitalID = %v, want %v", got.HospitalID, hospitalID)
	}
	if got.HospitalCode != "HOSP-001" {
		t.Errorf("HospitalCode = %q, want HOSP-001", got.HospitalCode)
	}
	if got.PatientID != nil {
		t.Errorf("PatientID = %v, want nil", got.PatientID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := testIssuer().Issue(Identity{UserID: uuid.New(), Role: RolePatient})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	other := NewIssuer("another-secret-another-secret-xx", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef0123456789abcdef", -time.Minute)
	token, err := issuer.Issue(Identity{UserID: uuid.New(), Role: RolePatient})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatal("expected verification failure for expired token")
	}
}

func TestMiddlewareResolvesIdentity(t *testing.T) {
	issuer := testIssuer()
	patientID := uuid.New()
	token, err := issuer.Issue(Identity{
		UserID:    uuid.New(),
		Role:      RolePatient,
		PatientID: &patientID,
	})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	e := echo.New()
	handler := Middleware(issuer)(func(c echo.Context) error {
		id, ok := IdentityFromContext(c.Request().Context())
		if !ok {
			t.Fatal("identity missing from context")
		}
		if id.PatientID == nil || *id.PatientID != patientID {
			t.Errorf("PatientID = %v, want %v", id.PatientID, patientID)
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	e := echo.New()
	handler := Middleware(testIssuer())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	tests := []struct {
		name     string
		identity Identity
		allowed  []string
		wantCode int
	}{
		{"clinician allowed", Identity{Role: RoleClinician}, []string{RoleClinician}, http.StatusOK},
		{"admin passes any check", Identity{Role: RoleAdmin}, []string{RoleClinician}, http.StatusOK},
		{"patient blocked from clinician route", Identity{Role: RolePatient}, []string{RoleClinician}, http.StatusForbidden},
		{"prehospital blocked from patient route", Identity{Role: RolePreHospital}, []string{RolePatient}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			rec := httptest.NewRecorder()

			err := RequireRole(tt.allowed...)(ok)(e.NewContext(req, rec))
			switch tt.wantCode {
			case http.StatusOK:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			default:
				he, isHTTP := err.(*echo.HTTPError)
				if !isHTTP || he.Code != tt.wantCode {
					t.Fatalf("expected HTTPError %d, got %v", tt.wantCode, err)
				}
			}
		})
	}
}
