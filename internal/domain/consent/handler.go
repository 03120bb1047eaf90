package consent

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient-facing consent endpoints. Only the
// patient themself may view or change their grants.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/consents", auth.RequireRole(auth.RolePatient))
	g.GET("/me", h.ListMine)
	g.POST("/me/toggle", h.Toggle)
}

func (h *Handler) ListMine(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || id.PatientID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient context missing")
	}
	views, err := h.svc.ListForPatient(c.Request().Context(), *id.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, views)
}

type toggleRequest struct {
	HospitalCode string `json:"hospital_code"`
	Scope        string `json:"scope"`
	Granted      bool   `json:"granted"`
}

func (h *Handler) Toggle(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || id.PatientID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient context missing")
	}

	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.HospitalCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_code is required")
	}

	consent, err := h.svc.Toggle(c.Request().Context(), *id.PatientID, req.HospitalCode, req.Scope, req.Granted)
	if errors.Is(err, ErrHospitalNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, consent)
}
