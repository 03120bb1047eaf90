package account

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login on the public group and user provisioning on
// the authenticated one.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/login/clinician", h.loginAs(auth.RoleClinician))
	public.POST("/auth/login/patient", h.loginAs(auth.RolePatient))
	public.POST("/auth/login/prehospital", h.loginAs(auth.RolePreHospital))
	public.POST("/auth/login/admin", h.loginAs(auth.RoleAdmin))

	api.POST("/auth/users", h.CreateUser, auth.RequireRole(auth.RoleAdmin))
}

type loginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) loginAs(role string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if req.LoginID == "" || req.Password == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "login_id and password are required")
		}

		token, user, err := h.svc.Login(c.Request().Context(), role, req.LoginID, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
	}
}

type createUserRequest struct {
	LoginID    string     `json:"login_id"`
	Role       string     `json:"role"`
	Password   string     `json:"password"`
	HospitalID *uuid.UUID `json:"hospital_id"`
	PatientID  *uuid.UUID `json:"patient_id"`
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u := &User{
		LoginID:    req.LoginID,
		Role:       req.Role,
		HospitalID: req.HospitalID,
		PatientID:  req.PatientID,
	}
	if err := h.svc.CreateUser(c.Request().Context(), u, req.Password); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}
