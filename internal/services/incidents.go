package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/campussafety/safety-dashboard/internal/models"
)

const (
	TypeHazard      = "hazard"
	TypeSecurity    = "security"
	TypeMaintenance = "maintenance"
)

var categoryTypes = map[string]string{
	"hazard":      TypeHazard,
	"security":    TypeSecurity,
	"maintenance": TypeMaintenance,
	"theft":       TypeSecurity,
	"fire":        TypeHazard,
	"medical":     TypeHazard,
	"other":       TypeHazard,
}

// IncidentType maps a report category onto the map's incident types.
// Unknown categories are hazards.
func IncidentType(category string) string {
	if t, ok := categoryTypes[strings.ToLower(strings.TrimSpace(category))]; ok {
		return t
	}
	return TypeHazard
}

// DisplayID formats the id shown to admins, e.g. INC-42.
func DisplayID(id int64) string {
	return fmt.Sprintf("INC-%d", id)
}

// truncate keeps the first n runes of s and always appends an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// ToIncident maps a raw report to its view model. Missing fields fall back
// to placeholder values; nothing about the row is rejected.
func ToIncident(r models.Report) models.Incident {
	desc := strings.TrimSpace(r.DescriptionText())
	inc := models.Incident{
		ID:          r.ID,
		DisplayID:   DisplayID(r.ID),
		Title:       "No Title",
		Description: orDefault(desc, "No Description"),
		Category:    orDefault(r.CategoryText(), "General"),
		Status:      models.StatusPending,
		Severity:    models.SeverityMedium,
		Location:    orDefault(r.LocationText(), "Unknown"),
		Reporter:    orDefault(r.StudentIDText(), "Anonymous"),
		ReportedAt:  r.CreatedAt,
		Evidence:    SplitEvidence(r.ImageURLText()),
	}
	if desc != "" {
		inc.Title = truncate(desc, 30)
	}
	if st := strings.TrimSpace(r.StatusText()); st != "" {
		inc.Status = strings.ToLower(st)
	}
	if sev := strings.TrimSpace(r.SeverityText()); sev != "" {
		inc.Severity = strings.ToLower(sev)
	}
	inc.Type = IncidentType(inc.Category)
	if lat, lng, ok := ParseCoordinates(r.LocationText()); ok {
		inc.Coordinates = &models.Coordinates{Lat: lat, Lng: lng}
	}
	return inc
}

// ToIncidents maps every report, keeping order.
func ToIncidents(reports []models.Report) []models.Incident {
	out := make([]models.Incident, 0, len(reports))
	for _, r := range reports {
		out = append(out, ToIncident(r))
	}
	return out
}

// SplitEvidence splits the comma separated image_url column.
func SplitEvidence(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Detail adds the activity log shown in the incident panel.
func Detail(inc models.Incident) models.IncidentDetail {
	return models.IncidentDetail{
		Incident: inc,
		Activity: []models.ActivityEntry{
			{At: inc.ReportedAt, Message: "Report submitted by " + inc.Reporter},
		},
	}
}

func toSet(values []string) map[string]bool {
	set := map[string]bool{}
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	return set
}

// FilterIncidents applies f to incidents without modifying them. Order is
// preserved.
func FilterIncidents(incidents []models.Incident, f models.IncidentFilter) []models.Incident {
	statuses := toSet(f.Statuses)
	severities := toSet(f.Severities)
	categories := toSet(f.Categories)
	types := toSet(f.Types)
	term := strings.ToLower(strings.TrimSpace(f.Search))

	out := []models.Incident{}
	for _, inc := range incidents {
		if len(statuses) > 0 && !statuses[strings.ToLower(inc.Status)] {
			continue
		}
		if len(severities) > 0 && !severities[strings.ToLower(inc.Severity)] {
			continue
		}
		if len(categories) > 0 && !categories[strings.ToLower(inc.Category)] {
			continue
		}
		if len(types) > 0 && !types[IncidentType(inc.Category)] {
			continue
		}
		if term != "" && !matchesSearch(inc, term) {
			continue
		}
		if !inRange(inc.ReportedAt, f.From, f.To) {
			continue
		}
		out = append(out, inc)
	}
	return out
}

func matchesSearch(inc models.Incident, term string) bool {
	return strings.Contains(strings.ToLower(inc.Description), term) ||
		strings.Contains(strings.ToLower(inc.Location), term) ||
		strings.Contains(strings.ToLower(inc.DisplayID), term)
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
