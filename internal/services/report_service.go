package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campussafety/safety-dashboard/internal/models"
)

// ReportService wraps the remote "reports" table. Every read returns the
// full row set; filtering happens on the cached copy.
type ReportService interface {
	ListReports(ctx context.Context) ([]models.Report, error)
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	CountReports(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	ResolveReport(ctx context.Context, id int64) error
	UpdateSeverity(ctx context.Context, id int64, severity string) error
	BulkUpdateStatus(ctx context.Context, ids []int64, status string) (int64, error)
	DeleteReport(ctx context.Context, id int64) error
}

type reportService struct {
	db *gorm.DB
}

// NewReportService injects the *gorm.DB dependency and returns
// a ReportService ready for use.
func NewReportService(db *gorm.DB) ReportService {
	return &reportService{db: db}
}

// ListReports returns every report, newest first.
func (s *reportService) ListReports(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// GetReport loads one report. A missing row is ErrReportNotFound.
func (s *reportService) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	var r models.Report
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}
	return &r, nil
}

// CountReports returns the exact number of rows in reports.
func (s *reportService) CountReports(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Report{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// UpdateStatus writes a normalized status to a single row.
func (s *reportService) UpdateStatus(ctx context.Context, id int64, status string) error {
	st, err := NormalizeStatus(status)
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, id, "status", st)
}

// ResolveReport marks a report as resolved.
func (s *reportService) ResolveReport(ctx context.Context, id int64) error {
	return s.UpdateStatus(ctx, id, models.StatusResolved)
}

// UpdateSeverity validates and stores a new severity.
func (s *reportService) UpdateSeverity(ctx context.Context, id int64, severity string) error {
	sev, err := NormalizeSeverity(severity)
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, id, "severity", sev)
}

// BulkUpdateStatus sets the same status on every listed row in one statement
// and returns how many rows changed.
func (s *reportService) BulkUpdateStatus(ctx context.Context, ids []int64, status string) (int64, error) {
	st, err := NormalizeStatus(status)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Report{}).Where("id IN ?", ids).Update("status", st)
	if res.Error != nil {
		return 0, fmt.Errorf("bulk update status: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteReport removes one report. A missing row is ErrReportNotFound.
func (s *reportService) DeleteReport(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&models.Report{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete report %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (s *reportService) updateColumn(ctx context.Context, id int64, column, value string) error {
	res := s.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("update report %d %s: %w", id, column, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// mysql counts changed rows, not matched ones
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("update report %d %s: %w", id, column, err)
	}
	if n == 0 {
		return ErrReportNotFound
	}
	return nil
}

// NormalizeStatus lower-cases s and checks it against the workflow states.
func NormalizeStatus(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, st := range models.Statuses {
		if v == st {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// NormalizeSeverity lower-cases s and checks it against models.Severities.
func NormalizeSeverity(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, sev := range models.Severities {
		if v == sev {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}
