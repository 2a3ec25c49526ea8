package web

import (
	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
)

// Page data shapes, one per template.

type LoginView struct {
	Email string
}

type IncidentsView struct {
	Incidents  []models.Incident
	Total      int
	Search     string
	Selected   models.IncidentFilter
	Statuses   []string
	Severities []string
	Categories []string
	Types      []string
	ExportURL  string
}

type AnalyticsPageView struct {
	View    *models.AnalyticsView
	Ranges  []string
	Metrics []string
}

type MapView struct {
	Map       *services.MapData
	Statuses  []string
	Types     []string
	Resources []string
}

type ReportsView struct {
	Total          int64
	Month          string
	Snapshots      []models.AnalyticsSnapshot
	Runs           []models.JobRun
	ArchiveEnabled bool
}
