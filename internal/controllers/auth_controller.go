package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/middleware"
	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
	"github.com/campussafety/safety-dashboard/internal/web"
)

// AuthController serves the login page and the session endpoints. Its
// routes are not behind the session guard.
type AuthController struct {
	svc          services.AuthService
	shell        *Shell
	secureCookie bool
}

// NewAuthController creates a new instance of AuthController
func NewAuthController(svc services.AuthService, shell *Shell, secureCookie bool) *AuthController {
	return &AuthController{svc: svc, shell: shell, secureCookie: secureCookie}
}

// Register registers the public login and logout routes
func (ctrl *AuthController) Register(g *echo.Group) {
	g.GET("/login", ctrl.ShowLogin)
	g.POST("/login", ctrl.Login)
	g.POST("/logout", ctrl.Logout)

	g.POST("/api/v1/auth/login", ctrl.APILogin)
	g.POST("/api/v1/auth/logout", ctrl.APILogout)
}

// ShowLogin renders the sign-in form, or sends an admin who is already
// signed in to the dashboard.
func (ctrl *AuthController) ShowLogin(c echo.Context) error {
	if token := middleware.TokenFromRequest(c.Request()); token != "" {
		if _, err := ctrl.svc.Verify(token); err == nil {
			return c.Redirect(http.StatusFound, "/")
		}
	}
	return c.Render(http.StatusOK, "login.html", web.Page{
		Title:     "Sign in",
		Flash:     c.QueryParam("flash"),
		FlashType: c.QueryParam("flash_type"),
		Data:      web.LoginView{Email: c.QueryParam("email")},
	})
}

// Login handles the sign-in form and sets the session cookie.
func (ctrl *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return redirectFlash(c, middleware.LoginPath, "error", "Invalid login form")
	}

	sess, err := ctrl.svc.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		back := middleware.LoginPath + "?email=" + url.QueryEscape(req.Email)
		if errors.Is(err, services.ErrInvalidCredentials) {
			return redirectFlash(c, back, "error", err.Error())
		}
		ctrl.shell.Log.Error("sign in failed", zap.Error(err))
		return redirectFlash(c, back, "error", "Sign in is unavailable, please try again")
	}

	middleware.SetSessionCookie(c, sess, ctrl.secureCookie)
	ctrl.shell.Log.Info("admin signed in", zap.String("user_id", sess.User.ID))
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout ends the session and returns to the login page.
func (ctrl *AuthController) Logout(c echo.Context) error {
	ctrl.signOut(c)
	return c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

// APILogin returns the session as JSON for API clients.
func (ctrl *AuthController) APILogin(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	sess, err := ctrl.svc.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Sign in failed")
	}
	return c.JSON(http.StatusOK, sess)
}

// APILogout ends the session.
func (ctrl *AuthController) APILogout(c echo.Context) error {
	ctrl.signOut(c)
	return c.NoContent(http.StatusNoContent)
}

// signOut revokes the remote session when possible and always clears the
// cookie.
func (ctrl *AuthController) signOut(c echo.Context) {
	token := middleware.TokenFromRequest(c.Request())
	if err := ctrl.svc.SignOut(c.Request().Context(), token); err != nil {
		ctrl.shell.Log.Warn("sign out failed", zap.Error(err))
	}
	middleware.ClearSessionCookie(c, ctrl.secureCookie)
}
