package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/live"
	"github.com/campussafety/safety-dashboard/internal/middleware"
	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
	"github.com/campussafety/safety-dashboard/internal/web"
)

// Publisher pushes live updates to connected dashboards.
type Publisher interface {
	Publish(msgType string, data interface{}) error
}

// Shell holds what every page shares: the sidebar profile and badge, and
// the refresh that follows a write.
type Shell struct {
	Settings  services.SettingsService
	Analytics services.AnalyticsService
	Cache     *services.IncidentCache
	Live      Publisher
	Log       *zap.Logger
	Now       func() time.Time
}

func (s *Shell) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Page wraps data with the sidebar and flash state.
func (s *Shell) Page(c echo.Context, title, active string, data interface{}) web.Page {
	p := web.Page{
		Title:     title,
		Active:    active,
		Flash:     c.QueryParam("flash"),
		FlashType: c.QueryParam("flash_type"),
		Data:      data,
	}
	if u := middleware.CurrentUser(c); u != nil {
		p.UserEmail = u.Email
		p.DisplayName = services.DisplayNameFromEmail(u.Email)
		if s.Settings != nil {
			st, err := s.Settings.GetSettings(c.Request().Context(), u.ID, u.Email)
			if err != nil {
				s.Log.Warn("could not load admin settings", zap.String("user_id", u.ID), zap.Error(err))
			} else {
				p.DisplayName = st.DisplayName
				p.DarkMode = st.DarkMode
			}
		}
	}
	p.AvatarURL = services.AvatarURL(p.DisplayName)
	if s.Cache != nil {
		for _, inc := range s.Cache.Snapshot() {
			if inc.Status == models.StatusPending {
				p.PendingBadge++
			}
		}
	}
	return p
}

// Refresh reloads every incident and pushes the new summary to live
// subscribers. Writes never patch the cache in place.
func (s *Shell) Refresh(ctx context.Context) {
	if s.Analytics == nil {
		return
	}
	sum, err := s.Analytics.Summary(ctx)
	if err != nil {
		s.Log.Warn("reload after write failed", zap.Error(err))
		return
	}
	if s.Live == nil {
		return
	}
	if err := s.Live.Publish(live.MessageStats, sum); err != nil {
		s.Log.Warn("stats publish failed", zap.Error(err))
	}
}

// Render writes a page. A load error is logged and shown as a flash while
// the page renders with whatever data it has.
func (s *Shell) Render(c echo.Context, tmpl, title, active string, data interface{}, loadErr error) error {
	p := s.Page(c, title, active, data)
	if loadErr != nil {
		s.Log.Error("page data failed to load", zap.String("page", active), zap.Error(loadErr))
		p.Flash = "Could not load data from the server. Please refresh."
		p.FlashType = "error"
	}
	return c.Render(http.StatusOK, tmpl, p)
}

// APIError maps service errors to a status and writes the JSON error body.
// Unexpected errors are logged and answered with msg.
func (s *Shell) APIError(c echo.Context, err error, msg string) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.Log.Error(msg, zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(status, map[string]string{"error": msg})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

// FlashError redirects to path with the error as flash message.
func (s *Shell) FlashError(c echo.Context, path string, err error, msg string) error {
	if errorStatus(err) == http.StatusInternalServerError {
		s.Log.Error(msg, zap.String("path", c.Path()), zap.Error(err))
		return redirectFlash(c, path, "error", msg)
	}
	return redirectFlash(c, path, "error", err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrBuildingNotFound),
		errors.Is(err, services.ErrNoReports),
		errors.Is(err, services.ErrNoReportsForMonth):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidSeverity),
		errors.Is(err, services.ErrInvalidMonth),
		errors.Is(err, services.ErrInvalidRange),
		errors.Is(err, services.ErrInvalidMetric),
		errors.Is(err, services.ErrMissingNewsFields),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest      = errors.New("invalid request")
	errArchiveDisabled = fmt.Errorf("%w: no archive is configured", errBadRequest)
)

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// redirectFlash answers a form post with a redirect carrying a one-shot
// message for the next page.
func redirectFlash(c echo.Context, path, kind, msg string) error {
	q := url.Values{}
	q.Set("flash", msg)
	q.Set("flash_type", kind)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return c.Redirect(http.StatusSeeOther, path+sep+q.Encode())
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadRequest
	}
	return id, nil
}

func sendExport(c echo.Context, exp *services.Export) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exp.Filename+`"`)
	return c.Blob(http.StatusOK, exp.ContentType, exp.Data)
}
