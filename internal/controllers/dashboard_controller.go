package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
)

// DashboardController handles the dashboard home page.
type DashboardController struct {
	svc   services.AnalyticsService
	shell *Shell
}

// NewDashboardController creates a new instance of DashboardController
func NewDashboardController(svc services.AnalyticsService, shell *Shell) *DashboardController {
	return &DashboardController{svc: svc, shell: shell}
}

// Register registers the routes for the dashboard controller
func (ctrl *DashboardController) Register(pages, api *echo.Group) {
	pages.GET("/", ctrl.Show)
	api.GET("/dashboard/summary", ctrl.Summary)
}

// Show renders the summary cards, charts and recent incidents.
func (ctrl *DashboardController) Show(c echo.Context) error {
	sum, err := ctrl.svc.Summary(c.Request().Context())
	if err != nil {
		sum = &models.DashboardSummary{}
	}
	return ctrl.shell.Render(c, "dashboard.html", "Dashboard", "dashboard", sum, err)
}

// Summary returns the dashboard summary as JSON.
func (ctrl *DashboardController) Summary(c echo.Context) error {
	sum, err := ctrl.svc.Summary(c.Request().Context())
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load dashboard summary")
	}
	return c.JSON(http.StatusOK, sum)
}
