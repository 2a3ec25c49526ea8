package models

import "time"

type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// ChartData is the label/series shape consumed by the chart scripts.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type RecentIncident struct {
	ID         int64     `json:"id"`
	DisplayID  string    `json:"display_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	Severity   string    `json:"severity"`
	Location   string    `json:"location"`
	ReportedAt time.Time `json:"reported_at"`
}

// DashboardSummary is what the dashboard cards, badges and charts show.
type DashboardSummary struct {
	Total           int              `json:"total"`
	StatusCounts    map[string]int   `json:"status_counts"`
	SeverityCounts  map[string]int   `json:"severity_counts"`
	UniqueReporters int              `json:"unique_reporters"`
	PendingBadge    int              `json:"pending_badge"`
	Recent          []RecentIncident `json:"recent"`
	Categories      ChartData        `json:"categories"`
	Trend           ChartData        `json:"trend"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type CategoryShare struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type KPIs struct {
	TotalIncidents    int       `json:"total_incidents"`
	ResolvedIncidents int       `json:"resolved_incidents"`
	ResolutionRate    float64   `json:"resolution_rate"`
	ActiveReports     ChartData `json:"active_reports"`
}

// AnalyticsView is everything the analytics page renders for one range.
type AnalyticsView struct {
	Range         string          `json:"range"`
	Metric        string          `json:"metric"`
	Trend         ChartData       `json:"trend"`
	Categories    []CategoryShare `json:"categories"`
	TimeOfDay     ChartData       `json:"time_of_day"`
	Locations     ChartData       `json:"locations"`
	StatusChart   ChartData       `json:"status_distribution"`
	KPIs          KPIs            `json:"kpis"`
	IncidentCount int             `json:"incident_count"`
}

// AnalyticsReport is the downloadable JSON analytics report.
type AnalyticsReport struct {
	Title     string                 `json:"title"`
	Period    string                 `json:"period"`
	Generated time.Time              `json:"generated"`
	Charts    []string               `json:"charts"`
	Data      map[string]interface{} `json:"data"`
}

// UserProfile is a reporter derived from grouping reports by student id.
type UserProfile struct {
	ID            string    `json:"id"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	IncidentCount int       `json:"incident_count"`
	LastActive    time.Time `json:"last_active"`
	FirstSeen     time.Time `json:"first_seen"`
}
