package services

import (
	"context"
	"errors"
	"testing"

	"github.com/campussafety/safety-dashboard/internal/models"
)

type failingReports struct {
	ReportService
	err error
}

func (f failingReports) ListReports(context.Context) ([]models.Report, error) {
	return nil, f.err
}

func TestIncidentCache_ReloadReplacesContents(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, sampleReports()...)
	svc := NewReportService(db)
	cache := NewIncidentCache(svc, nil)

	if !cache.LoadedAt().IsZero() {
		t.Fatal("new cache should not be loaded")
	}
	if _, err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n := len(cache.Snapshot()); n != 6 {
		t.Fatalf("expected 6 incidents, got %d", n)
	}

	if err := svc.DeleteReport(context.Background(), 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if n := len(cache.Snapshot()); n != 6 {
		t.Errorf("cache must not change before a reload, got %d", n)
	}
	if _, err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if _, ok := cache.Find(1); ok {
		t.Error("deleted incident still cached after reload")
	}
}

func TestIncidentCache_SnapshotIsACopy(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, sampleReports()...)
	cache := NewIncidentCache(NewReportService(db), nil)
	if _, err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	snap := cache.Snapshot()
	snap[0].Status = "tampered"
	if cache.Snapshot()[0].Status == "tampered" {
		t.Error("snapshot mutation leaked into the cache")
	}
}

func TestIncidentCache_FailedReloadKeepsPrevious(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, sampleReports()...)
	cache := NewIncidentCache(NewReportService(db), nil)
	if _, err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	cache.reports = failingReports{err: errors.New("connection reset")}
	if _, err := cache.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if n := len(cache.Snapshot()); n != 6 {
		t.Errorf("expected previous 6 incidents to survive, got %d", n)
	}
}

func TestIncidentCache_CurrentLoadsOnce(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, sampleReports()...)
	cache := NewIncidentCache(NewReportService(db), nil)

	got, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(got) != 6 || cache.LoadedAt().IsZero() {
		t.Errorf("expected a loaded cache with 6 incidents, got %d", len(got))
	}
}
