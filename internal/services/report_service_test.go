package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campussafety/safety-dashboard/internal/models"
)

func ptrString(s string) *string { return &s }

// setupTestDB opens an in-memory SQLite database with every table the
// dashboard reads or writes.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("could not open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("could not get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Report{}, &models.News{}, &models.AdminSettings{}, &models.AnalyticsSnapshot{}, &models.JobRun{}); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return db
}

var baseTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func report(id int64, status, severity, category, location, student, desc string, at time.Time) models.Report {
	r := models.Report{ID: id, CreatedAt: at}
	if status != "" {
		r.Status = ptrString(status)
	}
	if severity != "" {
		r.Severity = ptrString(severity)
	}
	if category != "" {
		r.Category = ptrString(category)
	}
	if location != "" {
		r.Location = ptrString(location)
	}
	if student != "" {
		r.StudentID = ptrString(student)
	}
	if desc != "" {
		r.Description = ptrString(desc)
	}
	return r
}

func seedReports(t *testing.T, db *gorm.DB, reports ...models.Report) {
	t.Helper()
	for i := range reports {
		if err := db.Create(&reports[i]).Error; err != nil {
			t.Fatalf("failed to insert report %d: %v", reports[i].ID, err)
		}
	}
}

func TestListReports_Empty(t *testing.T) {
	svc := NewReportService(setupTestDB(t))

	reports, err := svc.ListReports(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("expected 0 reports, got: %d", len(reports))
	}
}

func TestListReports_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db,
		report(1, "pending", "low", "Theft", "Library", "S1", "old", baseTime.Add(-48*time.Hour)),
		report(2, "resolved", "high", "Fire", "Lab", "S2", "newest", baseTime),
		report(3, "", "", "", "", "", "", baseTime.Add(-24*time.Hour)),
	)

	reports, err := NewReportService(db).ListReports(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got: %d", len(reports))
	}
	if reports[0].ID != 2 || reports[1].ID != 3 || reports[2].ID != 1 {
		t.Errorf("expected order 2,3,1, got %d,%d,%d", reports[0].ID, reports[1].ID, reports[2].ID)
	}
	if reports[1].Status != nil {
		t.Errorf("expected NULL status to stay nil, got %q", *reports[1].Status)
	}
}

func TestGetReport_NotFound(t *testing.T) {
	svc := NewReportService(setupTestDB(t))
	if _, err := svc.GetReport(context.Background(), 42); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got: %v", err)
	}
}

func TestCountReports(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db,
		report(1, "pending", "", "", "", "", "", baseTime),
		report(2, "pending", "", "", "", "", "", baseTime),
	)
	n, err := NewReportService(db).CountReports(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}

func TestUpdateStatus_NormalizesCase(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, report(1, "pending", "", "", "", "", "", baseTime))
	svc := NewReportService(db)

	if err := svc.UpdateStatus(context.Background(), 1, " Investigating "); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	got, err := svc.GetReport(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got.StatusText() != "investigating" {
		t.Errorf("expected investigating, got %q", got.StatusText())
	}
}

func TestUpdateStatus_Invalid(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, report(1, "pending", "", "", "", "", "", baseTime))

	err := NewReportService(db).UpdateStatus(context.Background(), 1, "archived")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got: %v", err)
	}
}

func TestUpdateStatus_MissingRow(t *testing.T) {
	err := NewReportService(setupTestDB(t)).UpdateStatus(context.Background(), 7, "closed")
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got: %v", err)
	}
}

func TestResolveReport_WritesLowercaseResolved(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, report(5, "Pending", "", "", "", "", "", baseTime))
	svc := NewReportService(db)

	if err := svc.ResolveReport(context.Background(), 5); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	got, _ := svc.GetReport(context.Background(), 5)
	if got.StatusText() != "resolved" {
		t.Errorf("expected resolved, got %q", got.StatusText())
	}
}

func TestUpdateSeverity(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, report(1, "pending", "low", "", "", "", "", baseTime))
	svc := NewReportService(db)

	if err := svc.UpdateSeverity(context.Background(), 1, "HIGH"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	got, _ := svc.GetReport(context.Background(), 1)
	if got.SeverityText() != "high" {
		t.Errorf("expected high, got %q", got.SeverityText())
	}
	if err := svc.UpdateSeverity(context.Background(), 1, "critical"); !errors.Is(err, ErrInvalidSeverity) {
		t.Errorf("expected ErrInvalidSeverity, got: %v", err)
	}
}

func TestBulkUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db,
		report(1, "pending", "", "", "", "", "", baseTime),
		report(2, "pending", "", "", "", "", "", baseTime),
		report(3, "pending", "", "", "", "", "", baseTime),
	)
	svc := NewReportService(db)

	n, err := svc.BulkUpdateStatus(context.Background(), []int64{1, 3}, "closed")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows updated, got %d", n)
	}
	untouched, _ := svc.GetReport(context.Background(), 2)
	if untouched.StatusText() != "pending" {
		t.Errorf("report 2 should stay pending, got %q", untouched.StatusText())
	}
}

func TestDeleteReport(t *testing.T) {
	db := setupTestDB(t)
	seedReports(t, db, report(1, "pending", "", "", "", "", "", baseTime))
	svc := NewReportService(db)

	if err := svc.DeleteReport(context.Background(), 1); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := svc.DeleteReport(context.Background(), 1); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("second delete should report not found, got: %v", err)
	}
}
