package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/authz"
	"github.com/carelink/carelink/internal/platform/fhir"
	"github.com/carelink/carelink/pkg/pagination"
)

type Handler struct {
	svc  *Service
	gate *authz.Gate
}

func NewHandler(svc *Service, gate *authz.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	clinical := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleAdmin))
	clinical.GET("/patients/search", h.SearchPatients)
	clinical.GET("/patients/uhid/:uhid", h.GetPatientByUHID)
	clinical.GET("/patients/:id/timeline", h.Timeline)

	api.GET("/patients/me", h.MyProfile, auth.RequireRole(auth.RolePatient))
	api.GET("/patients/me/timeline", h.MyTimeline, auth.RequireRole(auth.RolePatient))
	api.GET("/hospitals", h.ListHospitals)

	adminOnly := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminOnly.POST("/patients", h.RegisterPatient)
	adminOnly.POST("/hospitals", h.RegisterHospital)

	fhirGroup.GET("/Patient/:id", h.GetPatientFHIR,
		auth.RequireRole(auth.RoleClinician, auth.RoleAdmin, auth.RolePatient))
}

func (h *Handler) SearchPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

// GetPatientByUHID resolves demographics only. Clinical content behind the
// id still goes through the gate on the endpoints that expose it.
func (h *Handler) GetPatientByUHID(c echo.Context) error {
	p, err := h.svc.GetPatientByUHID(c.Request().Context(), c.Param("uhid"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) MyProfile(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || id.PatientID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient context missing")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), *id.PatientID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Timeline(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return h.timeline(c, patientID, c.QueryParam("emergency_override") == "true")
}

func (h *Handler) MyTimeline(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || id.PatientID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient context missing")
	}
	return h.timeline(c, *id.PatientID, false)
}

func (h *Handler) timeline(c echo.Context, patientID uuid.UUID, override bool) error {
	ctx := c.Request().Context()
	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if _, err := h.gate.Authorize(ctx, authz.Request{
		Actor:             actor,
		PatientID:         patientID,
		Action:            "read_timeline",
		Resource:          c.Request().URL.Path,
		EmergencyOverride: override,
	}); err != nil {
		return authz.HTTPError(err)
	}

	entries, err := h.svc.Timeline(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient_id": patientID, "timeline": entries})
}

func (h *Handler) ListHospitals(c echo.Context) error {
	hospitals, err := h.svc.ListHospitals(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hospitals)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RegisterPatient(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) RegisterHospital(c echo.Context) error {
	var hosp Hospital
	if err := c.Bind(&hosp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RegisterHospital(c.Request().Context(), &hosp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, hosp)
}

func (h *Handler) GetPatientFHIR(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid", "invalid patient id"))
	}

	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return c.JSON(http.StatusUnauthorized, fhir.ErrorOutcome("login", "authentication required"))
	}
	if _, err := h.gate.Authorize(ctx, authz.Request{
		Actor:     actor,
		PatientID: patientID,
		Action:    "export_patient",
		Resource:  c.Request().URL.Path,
	}); err != nil {
		if errors.Is(err, authz.ErrBlocked) {
			return c.JSON(http.StatusForbidden, fhir.ErrorOutcome("forbidden", "access blocked: no active consent"))
		}
		return authz.HTTPError(err)
	}

	p, err := h.svc.GetPatient(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, fhir.ErrorOutcome("not-found", "patient not found"))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome("exception", err.Error()))
	}
	return c.JSON(http.StatusOK, p.ToFHIR())
}
