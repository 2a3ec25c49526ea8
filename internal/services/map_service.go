package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/campussafety/safety-dashboard/internal/config"
	"github.com/campussafety/safety-dashboard/internal/models"
)

var severityColors = map[string]string{
	models.SeverityHigh:   "#EF4444",
	models.SeverityMedium: "#F59E0B",
	models.SeverityLow:    "#10B981",
}

const defaultMarkerColor = "#6B7280"

var typeIcons = map[string]string{
	TypeHazard:      "fas fa-exclamation-triangle",
	TypeSecurity:    "fas fa-user-shield",
	TypeMaintenance: "fas fa-tools",
}

// MapFilter selects which markers the map shows. Empty sets show everything.
type MapFilter struct {
	Statuses      []string
	Types         []string
	ResourceTypes []string
}

// MapData is the full payload of the campus map page.
type MapData struct {
	Name      string                   `json:"name"`
	Center    config.LatLng            `json:"center"`
	Zoom      int                      `json:"zoom"`
	Bounds    []config.LatLng          `json:"bounds"`
	Tiles     config.TileSource        `json:"tiles"`
	Incidents []models.IncidentMarker  `json:"incidents"`
	Resources []models.ResourceMarker  `json:"resources"`
	Buildings []models.BuildingSummary `json:"buildings"`
	Unmapped  int                      `json:"unmapped"`
}

// MapService builds the campus map layers.
type MapService interface {
	MapData(ctx context.Context, f MapFilter) (*MapData, error)
	BuildingIncidents(ctx context.Context, buildingID string) ([]models.Incident, error)
}

type mapService struct {
	cache  *IncidentCache
	campus config.Campus
}

// NewMapService creates a MapService for campus.
func NewMapService(cache *IncidentCache, campus config.Campus) MapService {
	return &mapService{cache: cache, campus: campus}
}

// MapData builds the map from the current cache.
func (s *mapService) MapData(ctx context.Context, f MapFilter) (*MapData, error) {
	incidents, err := s.cache.Reload(ctx)
	if err != nil {
		return nil, err
	}
	data := BuildMapData(s.campus, incidents, f)
	return &data, nil
}

// BuildingIncidents returns the incidents whose location mentions the
// building's name.
func (s *mapService) BuildingIncidents(ctx context.Context, buildingID string) ([]models.Incident, error) {
	for _, b := range s.campus.Buildings {
		if b.ID != buildingID {
			continue
		}
		incidents, err := s.cache.Current(ctx)
		if err != nil {
			return nil, err
		}
		return incidentsInBuilding(incidents, b.Name), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrBuildingNotFound, buildingID)
}

// BuildMapData places every incident with a "lat,lng" location and attaches
// the static campus layers.
func BuildMapData(campus config.Campus, incidents []models.Incident, f MapFilter) MapData {
	data := MapData{
		Name:      campus.Name,
		Center:    campus.Center,
		Zoom:      campus.Zoom,
		Bounds:    campus.Bounds,
		Tiles:     campus.Tiles,
		Incidents: []models.IncidentMarker{},
		Resources: []models.ResourceMarker{},
		Buildings: []models.BuildingSummary{},
	}

	visible := FilterIncidents(incidents, models.IncidentFilter{Statuses: f.Statuses, Types: f.Types})
	for _, inc := range visible {
		if inc.Coordinates == nil {
			data.Unmapped++
			continue
		}
		data.Incidents = append(data.Incidents, IncidentMarker(inc))
	}

	resourceTypes := toSet(f.ResourceTypes)
	for _, r := range campus.Resources {
		if len(resourceTypes) > 0 && !resourceTypes[strings.ToLower(r.Type)] {
			continue
		}
		data.Resources = append(data.Resources, models.ResourceMarker{
			Type:          r.Type,
			Name:          r.Name,
			Lat:           r.Lat,
			Lng:           r.Lng,
			Icon:          r.Icon,
			DirectionsURL: DirectionsURL(r.Lat, r.Lng),
		})
	}

	for _, b := range campus.Buildings {
		summary := models.BuildingSummary{ID: b.ID, Name: b.Name, Coords: make([]models.Coordinates, 0, len(b.Coords))}
		for _, c := range b.Coords {
			summary.Coords = append(summary.Coords, models.Coordinates{Lat: c.Lat, Lng: c.Lng})
		}
		for _, inc := range incidentsInBuilding(incidents, b.Name) {
			summary.IncidentCount++
			if inc.Status == models.StatusPending {
				summary.Pending++
			}
			if inc.Severity == models.SeverityHigh {
				summary.HighSeverity++
			}
		}
		data.Buildings = append(data.Buildings, summary)
	}
	return data
}

// IncidentMarker converts a located incident to a map marker. The incident
// must have coordinates.
func IncidentMarker(inc models.Incident) models.IncidentMarker {
	m := models.IncidentMarker{
		ID:         inc.ID,
		DisplayID:  inc.DisplayID,
		Title:      inc.Title,
		Category:   inc.Category,
		Type:       inc.Type,
		Status:     inc.Status,
		Severity:   inc.Severity,
		Location:   inc.Location,
		Color:      SeverityColor(inc.Severity),
		Icon:       typeIcons[inc.Type],
		ReportedAt: inc.ReportedAt,
	}
	if inc.Coordinates != nil {
		m.Lat, m.Lng = inc.Coordinates.Lat, inc.Coordinates.Lng
		m.DirectionsURL = DirectionsURL(m.Lat, m.Lng)
	}
	return m
}

// SeverityColor is the marker colour for a severity.
func SeverityColor(severity string) string {
	if c, ok := severityColors[strings.ToLower(severity)]; ok {
		return c
	}
	return defaultMarkerColor
}

// DirectionsURL links to walking directions for a point.
func DirectionsURL(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lng, 'f', -1, 64))
}

// ParseCoordinates reads a "lat,lng" location. Anything else, including out
// of range values, is reported as not a coordinate.
func ParseCoordinates(location string) (lat, lng float64, ok bool) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

func incidentsInBuilding(incidents []models.Incident, name string) []models.Incident {
	needle := strings.ToLower(name)
	out := []models.Incident{}
	for _, inc := range incidents {
		if strings.Contains(strings.ToLower(inc.Location), needle) {
			out = append(out, inc)
		}
	}
	return out
}
