package models

import "time"

type IncidentMarker struct {
	ID            int64     `json:"id"`
	DisplayID     string    `json:"display_id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Severity      string    `json:"severity"`
	Location      string    `json:"location"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	Color         string    `json:"color"`
	Icon          string    `json:"icon"`
	ReportedAt    time.Time `json:"reported_at"`
	DirectionsURL string    `json:"directions_url"`
}

type ResourceMarker struct {
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Icon          string  `json:"icon"`
	DirectionsURL string  `json:"directions_url"`
}

type BuildingSummary struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Coords        []Coordinates `json:"coords"`
	IncidentCount int           `json:"incident_count"`
	Pending       int           `json:"pending"`
	HighSeverity  int           `json:"high_severity"`
}
