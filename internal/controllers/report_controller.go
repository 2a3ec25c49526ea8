package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/services"
	"github.com/campussafety/safety-dashboard/internal/web"
)

// ReportController serves the reports page: exports, archived copies and
// the monthly snapshot history.
type ReportController struct {
	reports   services.ReportService
	exports   services.ExportService
	snapshots services.SnapshotService
	archive   services.Archiver
	shell     *Shell
}

// NewReportController accepts a nil archive; archiving is then disabled.
func NewReportController(reports services.ReportService, exports services.ExportService, snapshots services.SnapshotService, archive services.Archiver, shell *Shell) *ReportController {
	return &ReportController{reports: reports, exports: exports, snapshots: snapshots, archive: archive, shell: shell}
}

// Register registers the routes for the report controller
func (ctrl *ReportController) Register(pages, api *echo.Group) {
	pages.GET("/reports", ctrl.Show)
	pages.GET("/reports/full.csv", ctrl.FullCSV)
	pages.GET("/reports/monthly.csv", ctrl.MonthlyCSV)
	pages.POST("/reports/archive", ctrl.Archive)
	pages.POST("/reports/snapshots", ctrl.GenerateSnapshot)

	api.GET("/reports/count", ctrl.Count)
	api.GET("/exports/full", ctrl.FullCSV)
	api.GET("/exports/monthly", ctrl.MonthlyCSV)
	api.POST("/exports/archive", ctrl.APIArchive)
	api.GET("/snapshots", ctrl.Snapshots)
	api.POST("/snapshots", ctrl.APIGenerateSnapshot)
	api.GET("/jobs", ctrl.JobRuns)
}

// Show renders the report count, snapshots and recent job runs.
func (ctrl *ReportController) Show(c echo.Context) error {
	ctx := c.Request().Context()
	view := web.ReportsView{
		Month:          ctrl.shell.now().Format("2006-01"),
		ArchiveEnabled: ctrl.archive != nil,
	}
	total, err := ctrl.reports.CountReports(ctx)
	if err == nil {
		view.Total = total
		view.Snapshots, err = ctrl.snapshots.ListSnapshots(ctx)
	}
	if err == nil {
		view.Runs, err = ctrl.snapshots.ListJobRuns(ctx, 20)
	}
	return ctrl.shell.Render(c, "reports.html", "Reports", "reports", view, err)
}

// Count returns the total number of reports.
func (ctrl *ReportController) Count(c echo.Context) error {
	total, err := ctrl.reports.CountReports(c.Request().Context())
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to count reports")
	}
	return c.JSON(http.StatusOK, map[string]int64{"total": total})
}

// FullCSV downloads every report.
func (ctrl *ReportController) FullCSV(c echo.Context) error {
	exp, err := ctrl.exports.FullCSV(c.Request().Context())
	if err != nil {
		return ctrl.exportError(c, err, "Failed to export reports")
	}
	return sendExport(c, exp)
}

// MonthlyCSV downloads the analytics CSV for ?month=YYYY-MM.
func (ctrl *ReportController) MonthlyCSV(c echo.Context) error {
	exp, err := ctrl.exports.MonthlyCSV(c.Request().Context(), c.QueryParam("month"))
	if err != nil {
		return ctrl.exportError(c, err, "Failed to export monthly analytics")
	}
	return sendExport(c, exp)
}

// Archive stores the full export in the configured archive.
func (ctrl *ReportController) Archive(c echo.Context) error {
	loc, err := ctrl.archiveFull(c)
	if err != nil {
		return ctrl.shell.FlashError(c, "/reports", err, "Failed to archive export")
	}
	return redirectFlash(c, "/reports", "success", "Export archived to "+loc)
}

// APIArchive archives the full export and returns its location.
func (ctrl *ReportController) APIArchive(c echo.Context) error {
	loc, err := ctrl.archiveFull(c)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to archive export")
	}
	return c.JSON(http.StatusCreated, map[string]string{"location": loc})
}

func (ctrl *ReportController) archiveFull(c echo.Context) (string, error) {
	if ctrl.archive == nil {
		return "", errArchiveDisabled
	}
	ctx := c.Request().Context()
	exp, err := ctrl.exports.FullCSV(ctx)
	if err != nil {
		return "", err
	}
	loc, err := ctrl.archive.Put(ctx, "exports/"+exp.Filename, exp.ContentType, exp.Data)
	if err != nil {
		return "", err
	}
	ctrl.shell.Log.Info("full export archived", zap.String("location", loc), zap.Int("rows", exp.Rows))
	return loc, nil
}

// GenerateSnapshot handles the snapshot form.
func (ctrl *ReportController) GenerateSnapshot(c echo.Context) error {
	snap, err := ctrl.snapshots.Generate(c.Request().Context(), c.FormValue("month"))
	if err != nil {
		return ctrl.shell.FlashError(c, "/reports", err, "Failed to generate snapshot")
	}
	return redirectFlash(c, "/reports", "success", "Snapshot for "+snap.Period+" stored ("+strconv.Itoa(snap.Total)+" incidents)")
}

// APIGenerateSnapshot stores the snapshot for ?month and answers 201.
func (ctrl *ReportController) APIGenerateSnapshot(c echo.Context) error {
	month := c.QueryParam("month")
	if month == "" {
		month = c.FormValue("month")
	}
	snap, err := ctrl.snapshots.Generate(c.Request().Context(), month)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to generate snapshot")
	}
	return c.JSON(http.StatusCreated, snap)
}

// Snapshots lists stored snapshots.
func (ctrl *ReportController) Snapshots(c echo.Context) error {
	snaps, err := ctrl.snapshots.ListSnapshots(c.Request().Context())
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load snapshots")
	}
	return c.JSON(http.StatusOK, snaps)
}

// JobRuns lists recent job executions. ?limit is capped by the service.
func (ctrl *ReportController) JobRuns(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := ctrl.snapshots.ListJobRuns(c.Request().Context(), limit)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load job runs")
	}
	return c.JSON(http.StatusOK, runs)
}

// exportError answers download links: pages get a flash, API callers JSON.
func (ctrl *ReportController) exportError(c echo.Context, err error, msg string) error {
	if isAPI(c) {
		return ctrl.shell.APIError(c, err, msg)
	}
	return ctrl.shell.FlashError(c, "/reports", err, msg)
}
