package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/campussafety/safety-dashboard/internal/middleware"
)

// Router mounts every controller behind the right guard: HTML pages
// redirect to the login page, the JSON API and the websocket answer 401.
type Router struct {
	Verifier  middleware.Verifier
	Auth      *AuthController
	Health    *HealthController
	Dashboard *DashboardController
	Incidents *IncidentController
	Analytics *AnalyticsController
	Map       *MapController
	News      *NewsController
	Users     *UserController
	Reports   *ReportController
	Settings  *SettingsController
	Live      *LiveController
}

// Mount registers every controller on e.
func (r *Router) Mount(e *echo.Echo) {
	public := e.Group("")
	pages := e.Group("", middleware.RequireSession(r.Verifier))
	api := e.Group("/api/v1", middleware.RequireAPISession(r.Verifier))

	r.Auth.Register(public)
	r.Health.Register(public, api)
	r.Dashboard.Register(pages, api)
	r.Incidents.Register(pages, api)
	r.Analytics.Register(pages, api)
	r.Map.Register(pages, api)
	r.News.Register(pages, api)
	r.Users.Register(pages, api)
	r.Reports.Register(pages, api)
	r.Settings.Register(pages, api)
	if r.Live != nil {
		r.Live.Register(e.Group("/ws", middleware.RequireAPISession(r.Verifier)))
	}
}
