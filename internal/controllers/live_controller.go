package controllers

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/live"
)

// LiveController upgrades dashboard pages to the stats websocket.
type LiveController struct {
	hub *live.Hub
	log *zap.Logger
}

// NewLiveController creates a new instance of LiveController
func NewLiveController(hub *live.Hub, log *zap.Logger) *LiveController {
	return &LiveController{hub: hub, log: log}
}

// Register registers the websocket route
func (ctrl *LiveController) Register(g *echo.Group) {
	g.GET("/stats", ctrl.Stats)
}

// Stats blocks for the life of the connection. A failed upgrade has already
// been answered by the upgrader.
func (ctrl *LiveController) Stats(c echo.Context) error {
	if err := ctrl.hub.Serve(c.Response(), c.Request()); err != nil {
		ctrl.log.Debug("websocket upgrade failed", zap.Error(err))
	}
	return nil
}
