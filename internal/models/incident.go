package models

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Incident is the view model rendered by every incidents table, map popup
// and detail panel. It is derived from a Report and never stored.
type Incident struct {
	ID          int64        `json:"id"`
	DisplayID   string       `json:"display_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Type        string       `json:"type"`
	Status      string       `json:"status"`
	Severity    string       `json:"severity"`
	Location    string       `json:"location"`
	Reporter    string       `json:"reporter"`
	ReportedAt  time.Time    `json:"reported_at"`
	Evidence    []string     `json:"evidence"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// IncidentFilter narrows a cached incident list. Empty sets and zero values
// place no restriction.
type IncidentFilter struct {
	Statuses   []string   `json:"statuses"`
	Severities []string   `json:"severities"`
	Categories []string   `json:"categories"`
	Types      []string   `json:"types"`
	Search     string     `json:"search"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// ActivityEntry is one line of an incident's activity log.
type ActivityEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// IncidentDetail backs the incident detail panel.
type IncidentDetail struct {
	Incident
	Activity []ActivityEntry `json:"activity"`
}
