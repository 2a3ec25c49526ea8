package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
	"github.com/campussafety/safety-dashboard/internal/web"
)

var errNoSelection = fmt.Errorf("%w: select at least one incident", errBadRequest)

// IncidentController lists, filters and edits incidents.
type IncidentController struct {
	reports services.ReportService
	cache   *services.IncidentCache
	exports services.ExportService
	shell   *Shell
}

// NewIncidentController creates a new instance of IncidentController
func NewIncidentController(reports services.ReportService, cache *services.IncidentCache, exports services.ExportService, shell *Shell) *IncidentController {
	return &IncidentController{reports: reports, cache: cache, exports: exports, shell: shell}
}

// Register registers the incident pages, form actions and API routes
func (ctrl *IncidentController) Register(pages, api *echo.Group) {
	pages.GET("/incidents", ctrl.List)
	pages.GET("/incidents/:id", ctrl.Show)
	pages.POST("/incidents/bulk-status", ctrl.BulkStatus)
	pages.POST("/incidents/:id/status", ctrl.UpdateStatus)
	pages.POST("/incidents/:id/severity", ctrl.UpdateSeverity)
	pages.POST("/incidents/:id/resolve", ctrl.Resolve)
	pages.POST("/incidents/:id/delete", ctrl.Delete)

	api.GET("/incidents", ctrl.APIList)
	api.GET("/incidents/export", ctrl.APIExport)
	api.GET("/incidents/:id", ctrl.APIShow)
	api.POST("/incidents/bulk-status", ctrl.APIBulkStatus)
	api.PATCH("/incidents/:id/status", ctrl.APIUpdateStatus)
	api.PATCH("/incidents/:id/severity", ctrl.APIUpdateSeverity)
	api.POST("/incidents/:id/resolve", ctrl.APIResolve)
	api.DELETE("/incidents/:id", ctrl.APIDelete)
}

// List re-fetches every report and filters the fresh copy.
func (ctrl *IncidentController) List(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return redirectFlash(c, "/incidents", "error", err.Error())
	}
	all, err := ctrl.cache.Reload(c.Request().Context())
	view := web.IncidentsView{
		Incidents:  services.FilterIncidents(all, f),
		Total:      len(all),
		Search:     f.Search,
		Selected:   f,
		Statuses:   models.Statuses,
		Severities: models.Severities,
		Categories: categories(all),
		Types:      []string{services.TypeHazard, services.TypeSecurity, services.TypeMaintenance},
		ExportURL:  "/api/v1/incidents/export?" + c.QueryString(),
	}
	return ctrl.shell.Render(c, "incidents.html", "Incidents", "incidents", view, err)
}

// Show renders one incident with its evidence and activity.
func (ctrl *IncidentController) Show(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "incident not found")
	}
	r, err := ctrl.reports.GetReport(c.Request().Context(), id)
	if errors.Is(err, services.ErrReportNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "incident not found")
	}
	if err != nil {
		return err
	}
	inc := services.ToIncident(*r)
	return ctrl.shell.Render(c, "incident.html", inc.DisplayID, "incidents", services.Detail(inc), nil)
}

// UpdateStatus handles the status form on the detail page.
func (ctrl *IncidentController) UpdateStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "incident not found")
	}
	var req models.StatusRequest
	if err := c.Bind(&req); err != nil {
		return redirectFlash(c, incidentPath(id), "error", "Invalid status form")
	}
	if err := ctrl.reports.UpdateStatus(c.Request().Context(), id, req.Status); err != nil {
		return ctrl.shell.FlashError(c, incidentPath(id), err, "Failed to update status")
	}
	ctrl.shell.Refresh(c.Request().Context())
	return redirectFlash(c, incidentPath(id), "success", "Status updated to "+services.StatusLabel(strings.ToLower(strings.TrimSpace(req.Status))))
}

// UpdateSeverity handles the severity form on the detail page.
func (ctrl *IncidentController) UpdateSeverity(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "incident not found")
	}
	var req models.SeverityRequest
	if err := c.Bind(&req); err != nil {
		return redirectFlash(c, incidentPath(id), "error", "Invalid severity form")
	}
	if err := ctrl.reports.UpdateSeverity(c.Request().Context(), id, req.Severity); err != nil {
		return ctrl.shell.FlashError(c, incidentPath(id), err, "Failed to update severity")
	}
	ctrl.shell.Refresh(c.Request().Context())
	return redirectFlash(c, incidentPath(id), "success", "Severity updated")
}

// Resolve marks the incident as resolved.
func (ctrl *IncidentController) Resolve(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "incident not found")
	}
	if err := ctrl.reports.ResolveReport(c.Request().Context(), id); err != nil {
		return ctrl.shell.FlashError(c, incidentPath(id), err, "Failed to resolve incident")
	}
	ctrl.shell.Refresh(c.Request().Context())
	return redirectFlash(c, incidentPath(id), "success", services.DisplayID(id)+" marked as resolved")
}

// Delete removes the incident and returns to the list.
func (ctrl *IncidentController) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "incident not found")
	}
	if err := ctrl.reports.DeleteReport(c.Request().Context(), id); err != nil {
		return ctrl.shell.FlashError(c, "/incidents", err, "Failed to delete incident")
	}
	ctrl.shell.Refresh(c.Request().Context())
	return redirectFlash(c, "/incidents", "success", services.DisplayID(id)+" deleted")
}

// BulkStatus applies one status to the checked rows.
func (ctrl *IncidentController) BulkStatus(c echo.Context) error {
	n, err := ctrl.bulkUpdate(c)
	if err != nil {
		return ctrl.shell.FlashError(c, "/incidents", err, "Failed to update incidents")
	}
	return redirectFlash(c, "/incidents", "success", fmt.Sprintf("%d incidents updated", n))
}

// APIList returns the filtered incidents.
func (ctrl *IncidentController) APIList(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	all, err := ctrl.cache.Reload(c.Request().Context())
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load incidents")
	}
	return c.JSON(http.StatusOK, services.FilterIncidents(all, f))
}

// APIExport downloads the filtered view as CSV.
func (ctrl *IncidentController) APIExport(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	exp, err := ctrl.exports.IncidentsCSV(c.Request().Context(), f)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to export incidents")
	}
	return sendExport(c, exp)
}

// APIShow returns one incident with its activity log.
func (ctrl *IncidentController) APIShow(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid incident id"})
	}
	r, err := ctrl.reports.GetReport(c.Request().Context(), id)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load incident")
	}
	return c.JSON(http.StatusOK, services.Detail(services.ToIncident(*r)))
}

// APIUpdateStatus sets the status and returns the reloaded incident.
func (ctrl *IncidentController) APIUpdateStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid incident id"})
	}
	var req models.StatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := ctrl.reports.UpdateStatus(c.Request().Context(), id, req.Status); err != nil {
		return ctrl.shell.APIError(c, err, "Failed to update status")
	}
	return ctrl.refreshed(c, id)
}

// APIUpdateSeverity sets the severity and returns the reloaded incident.
func (ctrl *IncidentController) APIUpdateSeverity(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid incident id"})
	}
	var req models.SeverityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := ctrl.reports.UpdateSeverity(c.Request().Context(), id, req.Severity); err != nil {
		return ctrl.shell.APIError(c, err, "Failed to update severity")
	}
	return ctrl.refreshed(c, id)
}

// APIResolve marks the incident as resolved.
func (ctrl *IncidentController) APIResolve(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid incident id"})
	}
	if err := ctrl.reports.ResolveReport(c.Request().Context(), id); err != nil {
		return ctrl.shell.APIError(c, err, "Failed to resolve incident")
	}
	return ctrl.refreshed(c, id)
}

// APIDelete removes the incident.
func (ctrl *IncidentController) APIDelete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid incident id"})
	}
	if err := ctrl.reports.DeleteReport(c.Request().Context(), id); err != nil {
		return ctrl.shell.APIError(c, err, "Failed to delete incident")
	}
	ctrl.shell.Refresh(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// APIBulkStatus returns how many rows were updated.
func (ctrl *IncidentController) APIBulkStatus(c echo.Context) error {
	n, err := ctrl.bulkUpdate(c)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to update incidents")
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}

func (ctrl *IncidentController) bulkUpdate(c echo.Context) (int64, error) {
	var req models.BulkStatusRequest
	if err := c.Bind(&req); err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(req.IDs) == 0 {
		return 0, errNoSelection
	}
	n, err := ctrl.reports.BulkUpdateStatus(c.Request().Context(), req.IDs, req.Status)
	if err != nil {
		return 0, err
	}
	ctrl.shell.Refresh(c.Request().Context())
	return n, nil
}

// refreshed reloads after a write and answers with the incident as stored.
func (ctrl *IncidentController) refreshed(c echo.Context, id int64) error {
	ctrl.shell.Refresh(c.Request().Context())
	if inc, ok := ctrl.cache.Find(id); ok {
		return c.JSON(http.StatusOK, inc)
	}
	r, err := ctrl.reports.GetReport(c.Request().Context(), id)
	if err != nil {
		ctrl.shell.Log.Warn("updated incident not readable", zap.Int64("id", id), zap.Error(err))
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, services.ToIncident(*r))
}

func incidentPath(id int64) string {
	return "/incidents/" + strconv.FormatInt(id, 10)
}

// parseFilter reads repeated or comma-separated status, severity, category
// and type parameters, a search term q, and from/to dates (YYYY-MM-DD,
// both inclusive).
func parseFilter(c echo.Context) (models.IncidentFilter, error) {
	q := c.QueryParams()
	f := models.IncidentFilter{
		Statuses:   listParam(q, "status"),
		Severities: listParam(q, "severity"),
		Categories: listParam(q, "category"),
		Types:      listParam(q, "type"),
		Search:     strings.TrimSpace(q.Get("q")),
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return f, fmt.Errorf("%w: from must be YYYY-MM-DD", errBadRequest)
		}
		f.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return f, fmt.Errorf("%w: to must be YYYY-MM-DD", errBadRequest)
		}
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	return f, nil
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func categories(incidents []models.Incident) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, inc := range incidents {
		if !seen[inc.Category] {
			seen[inc.Category] = true
			out = append(out, inc.Category)
		}
	}
	sort.Strings(out)
	return out
}
