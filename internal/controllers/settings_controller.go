package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/middleware"
	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
)

// SettingsController handles profile preferences and password changes.
type SettingsController struct {
	settings     services.SettingsService
	auth         services.AuthService
	shell        *Shell
	secureCookie bool
}

// NewSettingsController creates a new instance of SettingsController
func NewSettingsController(settings services.SettingsService, auth services.AuthService, shell *Shell, secureCookie bool) *SettingsController {
	return &SettingsController{settings: settings, auth: auth, shell: shell, secureCookie: secureCookie}
}

// Register registers the routes for the settings controller
func (ctrl *SettingsController) Register(pages, api *echo.Group) {
	pages.GET("/settings", ctrl.Show)
	pages.POST("/settings", ctrl.Save)
	pages.POST("/settings/password", ctrl.UpdatePassword)

	api.GET("/settings", ctrl.APIShow)
	api.PUT("/settings", ctrl.APISave)
	api.POST("/settings/password", ctrl.APIUpdatePassword)
}

// Show asks the auth API for the current account before rendering, so a
// session revoked elsewhere ends here.
func (ctrl *SettingsController) Show(c echo.Context) error {
	user, err := ctrl.auth.CurrentUser(c.Request().Context(), middleware.Token(c))
	if errors.Is(err, services.ErrUnauthorized) {
		middleware.ClearSessionCookie(c, ctrl.secureCookie)
		return c.Redirect(http.StatusFound, middleware.LoginPath)
	}
	if err != nil {
		ctrl.shell.Log.Warn("auth api user lookup failed", zap.Error(err))
		user = middleware.CurrentUser(c)
	}

	st, err := ctrl.settings.GetSettings(c.Request().Context(), user.ID, user.Email)
	if err != nil {
		st = &models.AdminSettings{}
	}
	return ctrl.shell.Render(c, "settings.html", "Settings", "settings", st, err)
}

// Save handles the preferences form.
func (ctrl *SettingsController) Save(c echo.Context) error {
	var req models.SettingsRequest
	if err := c.Bind(&req); err != nil {
		return redirectFlash(c, "/settings", "error", "Invalid settings form")
	}
	user := middleware.CurrentUser(c)
	if _, err := ctrl.settings.SaveSettings(c.Request().Context(), user.ID, req); err != nil {
		return ctrl.shell.FlashError(c, "/settings", err, "Failed to save settings")
	}
	return redirectFlash(c, "/settings", "success", "Settings saved")
}

// UpdatePassword changes the password and signs the admin out.
func (ctrl *SettingsController) UpdatePassword(c echo.Context) error {
	var req models.PasswordRequest
	if err := c.Bind(&req); err != nil {
		return redirectFlash(c, "/settings", "error", "Invalid password form")
	}
	err := ctrl.auth.UpdatePassword(c.Request().Context(), middleware.Token(c), req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return ctrl.shell.FlashError(c, "/settings", err, "Failed to update password")
	}
	middleware.ClearSessionCookie(c, ctrl.secureCookie)
	return redirectFlash(c, middleware.LoginPath, "success", "Password updated. Please sign in again.")
}

// APIShow returns the admin's settings.
func (ctrl *SettingsController) APIShow(c echo.Context) error {
	user := middleware.CurrentUser(c)
	st, err := ctrl.settings.GetSettings(c.Request().Context(), user.ID, user.Email)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load settings")
	}
	return c.JSON(http.StatusOK, st)
}

// APISave stores the admin's settings.
func (ctrl *SettingsController) APISave(c echo.Context) error {
	var req models.SettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	st, err := ctrl.settings.SaveSettings(c.Request().Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to save settings")
	}
	return c.JSON(http.StatusOK, st)
}

// APIUpdatePassword changes the password and clears the session cookie.
func (ctrl *SettingsController) APIUpdatePassword(c echo.Context) error {
	var req models.PasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	err := ctrl.auth.UpdatePassword(c.Request().Context(), middleware.Token(c), req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to update password")
	}
	middleware.ClearSessionCookie(c, ctrl.secureCookie)
	return c.NoContent(http.StatusNoContent)
}
