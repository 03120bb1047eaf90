package audit

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/authz"
	"github.com/carelink/carelink/pkg/pagination"
)

type Handler struct {
	svc  *Service
	gate *authz.Gate
}

func NewHandler(svc *Service, gate *authz.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit/me", h.MyLog, auth.RequireRole(auth.RolePatient))
	api.GET("/audit/mine", h.MyActivity, auth.RequireRole(auth.RoleClinician, auth.RoleAdmin))
	api.GET("/audit/patients/:id", h.PatientLog, auth.RequireRole(auth.RoleClinician, auth.RoleAdmin))
}

// MyLog lets a patient read who has accessed their record.
func (h *Handler) MyLog(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || id.PatientID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient context missing")
	}
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.ListForPatient(c.Request().Context(), *id.PatientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

// MyActivity returns the caller's own trail of gate decisions.
func (h *Handler) MyActivity(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.ListForActor(c.Request().Context(), id.UserID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

// PatientLog is itself a gated record access: reading who saw a patient's
// chart reveals clinical relationships, so it passes through the gate and
// leaves its own entry.
func (h *Handler) PatientLog(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if _, err := h.gate.Authorize(ctx, authz.Request{
		Actor:     actor,
		PatientID: patientID,
		Action:    "read_audit",
		Resource:  c.Request().URL.Path,
	}); err != nil {
		return authz.HTTPError(err)
	}

	pg := pagination.FromContext(c)
	entries, total, err := h.svc.ListForPatient(ctx, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}
