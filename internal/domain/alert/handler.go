package alert

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

// RegisterRoutes mounts the alert feed. The feed is scoped to the caller's
// home hospital taken from the verified identity.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/alerts", auth.RequireRole(auth.RoleClinician, auth.RoleAdmin))
	g.GET("", h.List)
	g.POST("/:id/ack", h.Acknowledge)
}

func (h *Handler) List(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || id.HospitalID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital context missing")
	}
	pg := pagination.FromContext(c)
	alerts, total, err := h.svc.ListForHospital(c.Request().Context(), *id.HospitalID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(alerts, total, pg.Limit, pg.Offset))
}

func (h *Handler) Acknowledge(c echo.Context) error {
	actor, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid alert id")
	}

	a, err := h.svc.Acknowledge(c.Request().Context(), alertID, actor.UserID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}
