package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
)

// HealthController reports database reachability and the state of the
// dashboard's own tables and jobs.
type HealthController struct {
	db        *gorm.DB
	reports   services.ReportService
	snapshots services.SnapshotService
	cache     *services.IncidentCache
	clients   func() int
}

// NewHealthController creates a new instance of HealthController.
// clients may be nil when no live feed runs.
func NewHealthController(db *gorm.DB, reports services.ReportService, snapshots services.SnapshotService, cache *services.IncidentCache, clients func() int) *HealthController {
	return &HealthController{db: db, reports: reports, snapshots: snapshots, cache: cache, clients: clients}
}

// Register registers /healthz publicly and /status behind the API guard
func (ctrl *HealthController) Register(public, api *echo.Group) {
	public.GET("/healthz", ctrl.Health)
	api.GET("/status", ctrl.Status)
}

// Health answers 503 when the database or the local tables are not usable.
func (ctrl *HealthController) Health(c echo.Context) error {
	health := echo.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    echo.Map{},
	}
	checks := health["checks"].(echo.Map)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	sqlDB, err := ctrl.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = echo.Map{"status": "error", "message": err.Error()}
		health["status"] = "degraded"
	} else {
		checks["database"] = echo.Map{"status": "ok", "message": "database is reachable"}
	}

	missing := []string{}
	for _, table := range []string{"admin_settings", "analytics_snapshots", "job_runs"} {
		if !ctrl.db.WithContext(ctx).Migrator().HasTable(table) {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		checks["local_tables"] = echo.Map{"status": "warning", "message": "dashboard tables missing, run the migrate command", "missing": missing}
		health["status"] = "degraded"
	} else {
		checks["local_tables"] = echo.Map{"status": "ok"}
	}

	if loaded := ctrl.cache.LoadedAt(); loaded.IsZero() {
		checks["incident_cache"] = echo.Map{"status": "empty"}
	} else {
		checks["incident_cache"] = echo.Map{"status": "ok", "loaded_at": loaded.Format(time.RFC3339)}
	}

	statusCode := http.StatusOK
	if health["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, health)
}

// Status summarizes what the dashboard holds: report count, snapshots and
// the last job execution.
func (ctrl *HealthController) Status(c echo.Context) error {
	ctx := c.Request().Context()
	stats := echo.Map{
		"timestamp":     time.Now().Format(time.RFC3339),
		"cached":        len(ctrl.cache.Snapshot()),
		"live_clients":  0,
		"cache_updated": nil,
	}
	if ctrl.clients != nil {
		stats["live_clients"] = ctrl.clients()
	}
	if loaded := ctrl.cache.LoadedAt(); !loaded.IsZero() {
		stats["cache_updated"] = loaded.Format(time.RFC3339)
	}

	if total, err := ctrl.reports.CountReports(ctx); err != nil {
		stats["reports"] = echo.Map{"error": err.Error()}
	} else {
		stats["reports"] = echo.Map{"count": total}
	}

	if snaps, err := ctrl.snapshots.ListSnapshots(ctx); err != nil {
		stats["snapshots"] = echo.Map{"error": err.Error()}
	} else {
		last := echo.Map{"count": len(snaps)}
		if len(snaps) > 0 {
			last["latest_period"] = snaps[0].Period
		}
		stats["snapshots"] = last
	}

	runs, err := ctrl.snapshots.ListJobRuns(ctx, 1)
	switch {
	case err != nil:
		stats["last_execution"] = echo.Map{"error": err.Error()}
	case len(runs) == 0:
		stats["last_execution"] = echo.Map{"error": "no job has run yet"}
	default:
		stats["last_execution"] = lastExecution(runs[0])
	}

	return c.JSON(http.StatusOK, stats)
}

func lastExecution(run models.JobRun) echo.Map {
	return echo.Map{
		"job":       run.Job,
		"timestamp": run.StartedAt.Format(time.RFC3339),
		"status":    run.Status,
		"phase":     run.Phase,
	}
}
