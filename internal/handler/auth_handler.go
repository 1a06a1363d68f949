package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"listings/internal/auth"
	"listings/internal/errors"
	"listings/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	DisplayName string `json:"displayName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// RefreshRequest represents a refresh token exchange request.
type RefreshRequest struct {
	Email        string `json:"email" validate:"required,email"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// CheckUsernameRequest carries the display name to probe.
type CheckUsernameRequest struct {
	Name string `json:"name"`
}

// CheckEmailRequest carries the email to probe.
type CheckEmailRequest struct {
	Email string `json:"email"`
}

// RegisterResponse reports a registration outcome. Field errors and the
// aggregated store error travel in the body; the HTTP status stays 200.
type RegisterResponse struct {
	Success          bool   `json:"success"`
	DisplayNameError string `json:"displayNameError,omitempty"`
	PasswordError    string `json:"passwordError,omitempty"`
	Error            string `json:"error,omitempty"`
}

// LoginResponse reports a login or refresh outcome.
type LoginResponse struct {
	Success      bool   `json:"success"`
	Email        string `json:"email,omitempty"`
	UserName     string `json:"userName,omitempty"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BasicResponse carries a bare success flag.
type BasicResponse struct {
	Success bool `json:"success"`
}

// bindAndValidate binds the request body and runs field validation.
// Structurally invalid requests answer 404, not 400: the deployed frontend
// relies on that status, so it is kept for wire compatibility.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return nil
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 200 {object} RegisterResponse
// @Failure 404 {object} map[string]string
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), req.DisplayName, req.Email, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to register user",
			Code:  "REGISTRATION_FAILED",
		})
	}

	return c.JSON(http.StatusOK, RegisterResponse{
		Success:          result.Success,
		DisplayNameError: result.DisplayNameError,
		PasswordError:    result.PasswordError,
		Error:            result.Error,
	})
}

// Login godoc
// @Summary Login and receive bearer and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 404 {object} map[string]string
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			return c.JSON(http.StatusOK, LoginResponse{
				Success: false,
				Error:   err.Error(),
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to login",
			Code:  "LOGIN_FAILED",
		})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Success:      true,
		Email:        result.Email,
		UserName:     result.UserName,
		Token:        result.Token,
		RefreshToken: result.RefreshToken,
	})
}

// Refresh godoc
// @Summary Exchange a refresh token for a new bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} map[string]string
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Refresh(c.Request().Context(), req.Email, req.RefreshToken)
	if err != nil {
		if err == service.ErrInvalidRefreshToken {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_REFRESH_TOKEN",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to refresh token",
			Code:  "REFRESH_FAILED",
		})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Success:      true,
		Email:        result.Email,
		UserName:     result.UserName,
		Token:        result.Token,
		RefreshToken: result.RefreshToken,
	})
}

// Logout godoc
// @Summary Drop the refresh token and revoke the presenting bearer token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := currentClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	var expiresIn time.Duration
	if claims.ExpiresAt != nil {
		expiresIn = time.Until(claims.ExpiresAt.Time)
	}

	if err := h.authService.Logout(c.Request().Context(), claims.Email, claims.ID, expiresIn); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to logout",
			Code:  "LOGOUT_FAILED",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// CheckUsername godoc
// @Summary Report whether a display name is still available
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CheckUsernameRequest true "Display name"
// @Success 200 {object} BasicResponse
// @Failure 404 {object} map[string]string
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/CheckUsername [post]
func (h *AuthHandler) CheckUsername(c echo.Context) error {
	var req CheckUsernameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if req.Name == "" {
		req.Name = c.QueryParam("name")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	available, err := h.authService.IsDisplayNameAvailable(c.Request().Context(), req.Name)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to check username",
			Code:  "CHECK_FAILED",
		})
	}
	return c.JSON(http.StatusOK, BasicResponse{Success: available})
}

// CheckEmail godoc
// @Summary Report whether an email is still available
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CheckEmailRequest true "Email"
// @Success 200 {object} BasicResponse
// @Failure 404 {object} map[string]string
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/CheckEmail [post]
func (h *AuthHandler) CheckEmail(c echo.Context) error {
	var req CheckEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if req.Email == "" {
		req.Email = c.QueryParam("email")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	available, err := h.authService.IsEmailAvailable(c.Request().Context(), req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to check email",
			Code:  "CHECK_FAILED",
		})
	}
	return c.JSON(http.StatusOK, BasicResponse{Success: available})
}

// currentClaims returns the claims attached by the JWT middleware.
func currentClaims(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get("user").(*auth.Claims)
	return claims, ok
}
