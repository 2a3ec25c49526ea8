package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campussafety/safety-dashboard/internal/services"
)

// UserController lists the students who filed reports.
type UserController struct {
	svc   services.UserService
	shell *Shell
}

// NewUserController creates a new instance of UserController
func NewUserController(svc services.UserService, shell *Shell) *UserController {
	return &UserController{svc: svc, shell: shell}
}

// Register registers the routes for the user controller
func (ctrl *UserController) Register(pages, api *echo.Group) {
	pages.GET("/users", ctrl.List)
	api.GET("/users", ctrl.APIList)
}

// List renders the reporters page.
func (ctrl *UserController) List(c echo.Context) error {
	users, err := ctrl.svc.ListUsers(c.Request().Context())
	return ctrl.shell.Render(c, "users.html", "Users", "users", users, err)
}

// APIList returns the reporters.
func (ctrl *UserController) APIList(c echo.Context) error {
	users, err := ctrl.svc.ListUsers(c.Request().Context())
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load users")
	}
	return c.JSON(http.StatusOK, users)
}
