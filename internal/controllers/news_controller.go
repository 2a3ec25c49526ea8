package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
)

// NewsController lists and publishes campus news.
type NewsController struct {
	svc   services.NewsService
	shell *Shell
}

// NewNewsController creates a new instance of NewsController
func NewNewsController(svc services.NewsService, shell *Shell) *NewsController {
	return &NewsController{svc: svc, shell: shell}
}

// Register registers the routes for the news controller
func (ctrl *NewsController) Register(pages, api *echo.Group) {
	pages.GET("/news", ctrl.List)
	pages.POST("/news", ctrl.Publish)
	api.GET("/news", ctrl.APIList)
	api.POST("/news", ctrl.APIPublish)
}

// List renders the news page.
func (ctrl *NewsController) List(c echo.Context) error {
	news, err := ctrl.svc.ListNews(c.Request().Context())
	return ctrl.shell.Render(c, "news.html", "News", "news", news, err)
}

// Publish handles the news form.
func (ctrl *NewsController) Publish(c echo.Context) error {
	var req models.NewsRequest
	if err := c.Bind(&req); err != nil {
		return redirectFlash(c, "/news", "error", "Invalid news form")
	}
	if _, err := ctrl.svc.PublishNews(c.Request().Context(), req.Title, req.Description); err != nil {
		return ctrl.shell.FlashError(c, "/news", err, "Failed to publish news")
	}
	return redirectFlash(c, "/news", "success", "News published")
}

// APIList returns every news item.
func (ctrl *NewsController) APIList(c echo.Context) error {
	news, err := ctrl.svc.ListNews(c.Request().Context())
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to load news")
	}
	return c.JSON(http.StatusOK, news)
}

// APIPublish creates a news item and answers 201.
func (ctrl *NewsController) APIPublish(c echo.Context) error {
	var req models.NewsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	n, err := ctrl.svc.PublishNews(c.Request().Context(), req.Title, req.Description)
	if err != nil {
		return ctrl.shell.APIError(c, err, "Failed to publish news")
	}
	return c.JSON(http.StatusCreated, n)
}
