package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campussafety/safety-dashboard/internal/config"
	"github.com/campussafety/safety-dashboard/internal/database"
	"github.com/campussafety/safety-dashboard/internal/middleware"
	"github.com/campussafety/safety-dashboard/internal/models"
	"github.com/campussafety/safety-dashboard/internal/services"
	"github.com/campussafety/safety-dashboard/internal/web"
)

const (
	adminEmail    = "admin@campus.edu"
	adminPassword = "password1"
	jwtSecret     = "controller-test-secret"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []string
}

func (p *recordingPublisher) Publish(msgType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msgType)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type memArchive struct {
	names []string
}

func (a *memArchive) Put(_ context.Context, name, _ string, _ []byte) (string, error) {
	a.names = append(a.names, name)
	return "mem://" + name, nil
}

type testApp struct {
	e       *echo.Echo
	db      *gorm.DB
	token   string
	live    *recordingPublisher
	archive *memArchive
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, nil)
}

// newTestAppWith lets a test wrap the local auth provider.
func newTestAppWith(t *testing.T, wrap func(services.AuthProvider) services.AuthProvider) *testApp {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{DBDriver: "sqlite", DBSource: ":memory:"}
	db, err := database.Connect(cfg, log)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := database.MigrateLocal(db, cfg.DBDriver); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	provider := services.NewLocalAuth(adminEmail, string(hash), jwtSecret, time.Hour)
	if wrap != nil {
		provider = wrap(provider)
	}
	auth := services.NewAuthService(provider, jwtSecret, log)

	reports := services.NewReportService(db)
	cache := services.NewIncidentCache(reports, log)
	analytics := services.NewAnalyticsService(cache, nil)
	settings := services.NewSettingsService(db)
	exports := services.NewExportService(reports, cache, analytics, nil)
	archive := &memArchive{}
	snapshots := services.NewSnapshotService(db, reports, archive, log, nil)
	pub := &recordingPublisher{}

	shell := &Shell{Settings: settings, Analytics: analytics, Cache: cache, Live: pub, Log: log}
	renderer, err := web.New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	e := echo.New()
	e.Renderer = renderer
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	router := &Router{
		Verifier:  auth,
		Auth:      NewAuthController(auth, shell, false),
		Health:    NewHealthController(db, reports, snapshots, cache, nil),
		Dashboard: NewDashboardController(analytics, shell),
		Incidents: NewIncidentController(reports, cache, exports, shell),
		Analytics: NewAnalyticsController(analytics, exports, shell),
		Map:       NewMapController(services.NewMapService(cache, config.DefaultCampus()), shell),
		News:      NewNewsController(services.NewNewsService(db), shell),
		Users:     NewUserController(services.NewUserService(reports), shell),
		Reports:   NewReportController(reports, exports, snapshots, archive, shell),
		Settings:  NewSettingsController(settings, auth, shell, false),
	}
	router.Mount(e)

	sess, err := auth.SignIn(context.Background(), adminEmail, adminPassword)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return &testApp{e: e, db: db, token: sess.AccessToken, live: pub, archive: archive}
}

func ptr(s string) *string { return &s }

// seed inserts reports created relative to now so they fall inside the
// dashboard's 7-day window.
func (a *testApp) seed(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()
	rows := []models.Report{
		{ID: 1, Description: ptr("Bike stolen near racks"), Category: ptr("Theft"), Status: ptr("pending"), Severity: ptr("low"), Location: ptr("Main Library"), StudentID: ptr("S1"), CreatedAt: now.Add(-time.Hour)},
		{ID: 2, Description: ptr("Smoke in lab 3"), Category: ptr("Fire"), Status: ptr("investigating"), Severity: ptr("high"), Location: ptr("40.7130,-74.0062"), StudentID: ptr("S2"), CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 3, Description: ptr("Broken window, \"dorm\" A"), Category: ptr("Maintenance"), Status: ptr("resolved"), Severity: ptr("medium"), Location: ptr("Dormitory A"), StudentID: ptr("S1"), CreatedAt: now.Add(-26 * time.Hour)},
		{ID: 4, Description: ptr("Wallet missing"), Category: ptr("Theft"), Status: ptr("Pending"), Location: ptr("Gym"), CreatedAt: now.Add(-50 * time.Hour)},
	}
	for i := range rows {
		if err := a.db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("failed to insert report: %v", err)
		}
	}
}

func (a *testApp) do(req *http.Request, authed bool) *httptest.ResponseRecorder {
	if authed {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: a.token})
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string, authed bool) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), authed)
}

func (a *testApp) postForm(path string, form url.Values, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return a.do(req, authed)
}

func (a *testApp) sendJSON(method, path, body string, authed bool) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return a.do(req, authed)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

// flashOf returns the flash message carried by a redirect.
func flashOf(t *testing.T, rec *httptest.ResponseRecorder) (path, kind, msg string) {
	t.Helper()
	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	if err != nil {
		t.Fatalf("bad redirect location: %v", err)
	}
	return loc.Path, loc.Query().Get("flash_type"), loc.Query().Get("flash")
}
