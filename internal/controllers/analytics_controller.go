package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
	"github.com/campussafety/safety-dashboard/internal/web"
)

// AnalyticsController serves the analytics page and its data.
type AnalyticsController struct {
	svc     services.AnalyticsService
	exports services.ExportService
	shell   *Shell
}

// NewAnalyticsController creates a new instance of AnalyticsController
func NewAnalyticsController(svc services.AnalyticsService, exports services.ExportService, shell *Shell) *AnalyticsController {
	return &AnalyticsController{svc: svc, exports: exports, shell: shell}
}

// Register registers the routes for the analytics controller
func (ctrl *AnalyticsController) Register(pages, api *echo.Group) {
	pages.GET("/analytics", ctrl.Show)
	api.GET("/analytics", ctrl.Analytics)
	api.GET("/analytics/report", ctrl.Report)
}

// Show renders the analytics page. A bad range or metric is shown as a
// flash over default charts.
func (ctrl *AnalyticsController) Show(c echo.Context) error {
	view, err := ctrl.svc.Analytics(c.Request().Context(), c.QueryParam("range"), c.QueryParam("metric"))
	if err != nil {
		view = &models.AnalyticsView{Range: services.RangeWeek, Metric: services.MetricCount}
	}
	return ctrl.shell.Render(c, "analytics.html", "Analytics", "analytics", web.AnalyticsPageView{
		View:    view,
		Ranges:  []string{services.RangeWeek, services.RangeMonth, services.RangeQuarter, services.RangeYear},
		Metrics: []string{services.MetricCount, services.MetricSeverity},
	}, err)
}

// Analytics returns the charts for range and metric.
func (ctrl *AnalyticsController) Analytics(c echo.Context) error {
	view, err := ctrl.svc.Analytics(c.Request().Context(), c.QueryParam("range"), c.QueryParam("metric"))
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to compute analytics")
	}
	return c.JSON(http.StatusOK, view)
}

// Report downloads the JSON analytics report for the selected range.
func (ctrl *AnalyticsController) Report(c echo.Context) error {
	exp, err := ctrl.exports.AnalyticsJSON(c.Request().Context(), c.QueryParam("range"))
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to generate analytics report")
	}
	return sendExport(c, exp)
}
