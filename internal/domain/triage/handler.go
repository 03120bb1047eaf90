package triage

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the ambulance intake endpoints. The ambulance id is
// the crew's verified login, never a request field.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/ambulance", auth.RequireRole(auth.RolePreHospital))
	g.POST("/cases", h.SubmitCase)
	g.GET("/cases", h.ListCases)
	g.GET("/cases/:id", h.GetCase)
}

func (h *Handler) SubmitCase(c echo.Context) error {
	actor, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || actor.LoginID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ambulance context missing")
	}

	var sub Submission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.svc.Submit(c.Request().Context(), actor.LoginID, sub)
	if errors.Is(err, ErrClassifierUnavailable) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListCases(c echo.Context) error {
	actor, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || actor.LoginID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ambulance context missing")
	}
	pg := pagination.FromContext(c)
	cases, total, err := h.svc.ListCases(c.Request().Context(), actor.LoginID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(cases, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetCase(c echo.Context) error {
	actor, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}

	kase, err := h.svc.GetCase(c.Request().Context(), id)
	if errors.Is(err, ErrCaseNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// Crews see only their own submissions.
	if kase.AmbulanceID != actor.LoginID {
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	}
	return c.JSON(http.StatusOK, kase)
}
