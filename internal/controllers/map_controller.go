package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
	"github.com/campussafety/safety-dashboard/internal/web"
)

// MapController serves the campus map.
type MapController struct {
	svc   services.MapService
	shell *Shell
}

// NewMapController creates a new instance of MapController
func NewMapController(svc services.MapService, shell *Shell) *MapController {
	return &MapController{svc: svc, shell: shell}
}

// Register registers the routes for the map controller
func (ctrl *MapController) Register(pages, api *echo.Group) {
	pages.GET("/map", ctrl.Show)
	api.GET("/map", ctrl.Data)
	api.GET("/map/buildings/:id", ctrl.Building)
}

// Show renders the map page with the filtered layers.
func (ctrl *MapController) Show(c echo.Context) error {
	data, err := ctrl.svc.MapData(c.Request().Context(), mapFilter(c))
	if err != nil {
		data = &services.MapData{}
	}
	return ctrl.shell.Render(c, "map.html", "Campus Map", "map", web.MapView{
		Map:       data,
		Statuses:  models.Statuses,
		Types:     []string{services.TypeHazard, services.TypeSecurity, services.TypeMaintenance},
		Resources: []string{"emergency", "firstaid", "security"},
	}, err)
}

// Data returns the map layers as JSON.
func (ctrl *MapController) Data(c echo.Context) error {
	data, err := ctrl.svc.MapData(c.Request().Context(), mapFilter(c))
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load map data")
	}
	return c.JSON(http.StatusOK, data)
}

// Building lists the incidents reported in one campus building.
func (ctrl *MapController) Building(c echo.Context) error {
	incidents, err := ctrl.svc.BuildingIncidents(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load building incidents")
	}
	return c.JSON(http.StatusOK, incidents)
}

func mapFilter(c echo.Context) services.MapFilter {
	q := c.QueryParams()
	return services.MapFilter{
		Statuses:      listParam(q, "status"),
		Types:         listParam(q, "type"),
		ResourceTypes: listParam(q, "resource"),
	}
}
