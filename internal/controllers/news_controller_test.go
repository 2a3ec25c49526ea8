package controllers

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/campussafety/safety-dashboard/internal/models"
)

func TestAPIPublishNews(t *testing.T) {
	app := newTestApp(t)

	rec := app.sendJSON(http.MethodPost, "/api/v1/news", `{"title":" Road closure ","description":"North gate closed"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var n models.News
	decode(t, rec, &n)
	if n.Title != "Road closure" {
		t.Errorf("expected trimmed title, got %q", n.Title)
	}

	if rec := app.sendJSON(http.MethodPost, "/api/v1/news", `{"title":"","description":"x"}`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var news []models.News
	decode(t, app.get("/api/v1/news", true), &news)
	if len(news) != 1 {
		t.Errorf("expected one news item, got %d", len(news))
	}
}

func TestPublishNewsForm(t *testing.T) {
	app := newTestApp(t)

	rec := app.postForm("/news", url.Values{"title": {"Fire drill"}, "description": {"Friday at 10am"}}, true)
	if _, kind, msg := flashOf(t, rec); kind != "success" || msg != "News published" {
		t.Fatalf("unexpected flash %q %q", kind, msg)
	}

	rec = app.postForm("/news", url.Values{"title": {"Missing body"}}, true)
	if _, kind, msg := flashOf(t, rec); kind != "error" || msg != "title and description are required" {
		t.Errorf("unexpected flash %q %q", kind, msg)
	}

	page := app.get("/news", true)
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "Fire drill") {
		t.Errorf("expected published news on the page")
	}
}
