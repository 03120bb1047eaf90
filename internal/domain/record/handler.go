package record

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/authz"
	"github.com/carelink/carelink/internal/platform/fhir"
)

type Handler struct {
	svc  *Service
	gate *authz.Gate
}

func NewHandler(svc *Service, gate *authz.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	write := api.Group("/ehr", auth.RequireRole(auth.RoleClinician, auth.RoleAdmin))
	write.POST("/encounters", h.CreateEncounter)
	write.POST("/commit", h.CommitVersion)

	read := api.Group("/ehr", auth.RequireRole(auth.RoleClinician, auth.RoleAdmin, auth.RolePatient))
	read.GET("/encounters/:id", h.GetEncounter)
	read.GET("/encounters/:id/versions", h.ListVersions)
	read.GET("/encounters/:id/latest", h.LatestVersion)
	read.GET("/versions/:id", h.GetVersion)
	read.GET("/diff", h.DiffVersions)

	fhirRead := fhirGroup.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleAdmin, auth.RolePatient))
	fhirRead.GET("/Encounter/:id", h.GetEncounterFHIR)
	fhirRead.GET("/Observation/:id", h.GetObservationFHIR)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrEncounterNotFound),
		errors.Is(err, ErrVersionNotFound),
		errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrHospitalNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidParent), errors.Is(err, ErrDiffScope):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrWrongHospital):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type createEncounterRequest struct {
	PatientID         uuid.UUID  `json:"patient_id"`
	EncounterType     string     `json:"encounter_type"`
	StartedAt         *time.Time `json:"started_at"`
	EmergencyOverride bool       `json:"emergency_override"`
}

func (h *Handler) CreateEncounter(c echo.Context) error {
	ctx := c.Request().Context()
	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if actor.HospitalID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital context missing")
	}

	var req createEncounterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.gate.Authorize(ctx, authz.Request{
		Actor:             actor,
		PatientID:         req.PatientID,
		Action:            "create_encounter",
		Resource:          c.Request().URL.Path,
		EmergencyOverride: req.EmergencyOverride,
	}); err != nil {
		return authz.HTTPError(err)
	}

	params := CreateEncounterParams{
		PatientID:     req.PatientID,
		HospitalID:    *actor.HospitalID,
		EncounterType: req.EncounterType,
		CreatedBy:     actor.UserID,
	}
	if req.StartedAt != nil {
		params.StartedAt = *req.StartedAt
	}
	enc, err := h.svc.CreateEncounter(ctx, params)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) || errors.Is(err, ErrHospitalNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, enc)
}

type commitRequest struct {
	EncounterID       uuid.UUID              `json:"encounter_id"`
	ParentVersionID   *uuid.UUID             `json:"parent_version_id"`
	CommitMessage     string                 `json:"commit_message"`
	Payload           map[string]interface{} `json:"payload"`
	EmergencyOverride bool                   `json:"emergency_override"`
}

func (h *Handler) CommitVersion(c echo.Context) error {
	ctx := c.Request().Context()
	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req commitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// The gate targets the patient who owns the encounter, resolved here
	// rather than trusted from the request body.
	enc, err := h.svc.GetEncounter(ctx, req.EncounterID)
	if err != nil {
		return httpError(err)
	}
	if _, err := h.gate.Authorize(ctx, authz.Request{
		Actor:             actor,
		PatientID:         enc.PatientID,
		Action:            "commit_version",
		Resource:          c.Request().URL.Path,
		EmergencyOverride: req.EmergencyOverride,
	}); err != nil {
		return authz.HTTPError(err)
	}

	v, err := h.svc.CommitVersion(ctx, CommitParams{
		EncounterID:      req.EncounterID,
		ParentVersionID:  req.ParentVersionID,
		CommitMessage:    req.CommitMessage,
		Payload:          req.Payload,
		AuthorID:         actor.UserID,
		AuthorHospitalID: actor.HospitalID,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	enc, err := h.authorizedEncounter(c, "read_record")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, enc)
}

func (h *Handler) ListVersions(c echo.Context) error {
	enc, err := h.authorizedEncounter(c, "read_versions")
	if err != nil {
		return err
	}
	metas, err := h.svc.ListVersions(c.Request().Context(), enc.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"encounter_id": enc.ID,
		"versions":     metas,
	})
}

func (h *Handler) LatestVersion(c echo.Context) error {
	enc, err := h.authorizedEncounter(c, "read_record")
	if err != nil {
		return err
	}
	v, err := h.svc.LatestVersion(c.Request().Context(), enc.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVersion(c echo.Context) error {
	v, err := h.authorizedVersion(c, "read_record")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) DiffVersions(c echo.Context) error {
	ctx := c.Request().Context()
	fromID, err := uuid.Parse(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from version id")
	}
	toID, err := uuid.Parse(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to version id")
	}
	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	from, to, diff, err := h.svc.DiffVersions(ctx, fromID, toID)
	if err != nil {
		return httpError(err)
	}

	if _, err := h.gate.Authorize(ctx, authz.Request{
		Actor:             actor,
		PatientID:         from.PatientID,
		Action:            "read_diff",
		Resource:          c.Request().URL.Path,
		EmergencyOverride: c.QueryParam("emergency_override") == "true",
	}); err != nil {
		return authz.HTTPError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"from": from.ID,
		"to":   to.ID,
		"diff": diff,
	})
}

// authorizedEncounter resolves the encounter from the path and passes its
// owning patient through the gate.
func (h *Handler) authorizedEncounter(c echo.Context, action string) (*Encounter, error) {
	ctx := c.Request().Context()
	encounterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid encounter id")
	}
	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	enc, err := h.svc.GetEncounter(ctx, encounterID)
	if err != nil {
		return nil, httpError(err)
	}
	if _, err := h.gate.Authorize(ctx, authz.Request{
		Actor:             actor,
		PatientID:         enc.PatientID,
		Action:            action,
		Resource:          c.Request().URL.Path,
		EmergencyOverride: c.QueryParam("emergency_override") == "true",
	}); err != nil {
		return nil, authz.HTTPError(err)
	}
	return enc, nil
}

func (h *Handler) authorizedVersion(c echo.Context, action string) (*Version, error) {
	ctx := c.Request().Context()
	versionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid version id")
	}
	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	v, err := h.svc.GetVersion(ctx, versionID)
	if err != nil {
		return nil, httpError(err)
	}
	if _, err := h.gate.Authorize(ctx, authz.Request{
		Actor:             actor,
		PatientID:         v.PatientID,
		Action:            action,
		Resource:          c.Request().URL.Path,
		EmergencyOverride: c.QueryParam("emergency_override") == "true",
	}); err != nil {
		return nil, authz.HTTPError(err)
	}
	return v, nil
}

func (h *Handler) GetEncounterFHIR(c echo.Context) error {
	enc, err := h.authorizedEncounter(c, "export_encounter")
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return c.JSON(httpErr.Code, fhir.ErrorOutcome(outcomeCode(httpErr.Code), messageOf(httpErr)))
		}
		return err
	}
	return c.JSON(http.StatusOK, enc.ToFHIR())
}

func (h *Handler) GetObservationFHIR(c echo.Context) error {
	v, err := h.authorizedVersion(c, "export_observation")
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return c.JSON(httpErr.Code, fhir.ErrorOutcome(outcomeCode(httpErr.Code), messageOf(httpErr)))
		}
		return err
	}
	return c.JSON(http.StatusOK, v.ToFHIRObservation())
}

func outcomeCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not-found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusUnauthorized:
		return "login"
	default:
		return "invalid"
	}
}

func messageOf(err *echo.HTTPError) string {
	if msg, ok := err.Message.(string); ok {
		return msg
	}
	return http.StatusText(err.Code)
}
