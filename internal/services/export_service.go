package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campussafety/safety-dashboard/internal/models"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// FullExportHeader is the column order of the full dump and the incidents
// export.
var FullExportHeader = []string{"ID", "Created At", "Category", "Status", "Severity", "Location", "Student ID", "Description", "Image URL"}

// Export is a generated file ready to be downloaded or archived.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService builds the downloadable files.
type ExportService interface {
	FullCSV(ctx context.Context) (*Export, error)
	MonthlyCSV(ctx context.Context, month string) (*Export, error)
	IncidentsCSV(ctx context.Context, f models.IncidentFilter) (*Export, error)
	AnalyticsJSON(ctx context.Context, rng string) (*Export, error)
}

type exportService struct {
	reports   ReportService
	cache     *IncidentCache
	analytics AnalyticsService
	now       func() time.Time
}

// NewExportService creates an ExportService. A nil now uses time.Now.
func NewExportService(reports ReportService, cache *IncidentCache, analytics AnalyticsService, now func() time.Time) ExportService {
	if now == nil {
		now = time.Now
	}
	return &exportService{reports: reports, cache: cache, analytics: analytics, now: now}
}

// FullCSV dumps every report, newest first.
func (s *exportService) FullCSV(ctx context.Context) (*Export, error) {
	reports, err := s.reports.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNoReports
	}
	data, err := FullDumpCSV(reports)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    fmt.Sprintf("Full_Export_%s.csv", s.now().UTC().Format("2006-01-02")),
		ContentType: ContentTypeCSV,
		Data:        data,
		Rows:        len(reports),
	}, nil
}

// MonthlyCSV builds the analytics CSV for one YYYY-MM month.
func (s *exportService) MonthlyCSV(ctx context.Context, month string) (*Export, error) {
	start, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	reports, err := s.reports.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	inMonth := ReportsInMonth(reports, start)
	if len(inMonth) == 0 {
		return nil, ErrNoReportsForMonth
	}
	data, err := MonthlyReportCSV(month, inMonth, s.now())
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    fmt.Sprintf("Analytics_%s.csv", month),
		ContentType: ContentTypeCSV,
		Data:        data,
		Rows:        len(inMonth),
	}, nil
}

// IncidentsCSV exports the cached incidents that pass f.
func (s *exportService) IncidentsCSV(ctx context.Context, f models.IncidentFilter) (*Export, error) {
	incidents, err := s.cache.Current(ctx)
	if err != nil {
		return nil, err
	}
	filtered := FilterIncidents(incidents, f)
	if len(filtered) == 0 {
		return nil, ErrNoReports
	}
	data, err := IncidentsToCSV(filtered)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    fmt.Sprintf("incidents_export_%s.csv", s.now().UTC().Format("2006-01-02")),
		ContentType: ContentTypeCSV,
		Data:        data,
		Rows:        len(filtered),
	}, nil
}

// AnalyticsJSON encodes the analytics report for rng.
func (s *exportService) AnalyticsJSON(ctx context.Context, rng string) (*Export, error) {
	report, err := s.analytics.Report(ctx, rng)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode analytics report: %w", err)
	}
	return &Export{
		Filename:    fmt.Sprintf("analytics_report_%s.json", s.now().UTC().Format("2006-01-02")),
		ContentType: ContentTypeJSON,
		Data:        data,
	}, nil
}

// ParseMonth parses YYYY-MM and returns the first instant of that month in
// UTC.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(month))
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t.UTC(), nil
}

// ReportsInMonth keeps reports created in the UTC calendar month starting at
// start.
func ReportsInMonth(reports []models.Report, start time.Time) []models.Report {
	end := start.AddDate(0, 1, 0)
	out := []models.Report{}
	for _, r := range reports {
		t := r.CreatedAt.UTC()
		if !t.Before(start) && t.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func writeAll(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// FullDumpCSV renders reports in FullExportHeader order.
func FullDumpCSV(reports []models.Report) ([]byte, error) {
	records := make([][]string, 0, len(reports)+1)
	records = append(records, FullExportHeader)
	for _, r := range reports {
		records = append(records, []string{
			strconv.FormatInt(r.ID, 10),
			formatTime(r.CreatedAt),
			r.CategoryText(),
			r.StatusText(),
			r.SeverityText(),
			r.LocationText(),
			r.StudentIDText(),
			flatten(r.DescriptionText()),
			r.ImageURLText(),
		})
	}
	return writeAll(records)
}

// IncidentsToCSV renders mapped incidents with the full dump's columns.
func IncidentsToCSV(incidents []models.Incident) ([]byte, error) {
	records := make([][]string, 0, len(incidents)+1)
	records = append(records, FullExportHeader)
	for _, inc := range incidents {
		records = append(records, []string{
			strconv.FormatInt(inc.ID, 10),
			formatTime(inc.ReportedAt),
			inc.Category,
			inc.Status,
			inc.Severity,
			inc.Location,
			inc.Reporter,
			flatten(inc.Description),
			strings.Join(inc.Evidence, ","),
		})
	}
	return writeAll(records)
}

// MonthlyReportCSV renders the sectioned monthly analytics report.
func MonthlyReportCSV(month string, reports []models.Report, generated time.Time) ([]byte, error) {
	resolved, pending := 0, 0
	var catOrder []string
	cats := map[string]int{}
	for _, r := range reports {
		switch strings.ToLower(r.StatusText()) {
		case models.StatusResolved:
			resolved++
		case models.StatusPending:
			pending++
		}
		c := orDefault(r.CategoryText(), "Other")
		if _, ok := cats[c]; !ok {
			catOrder = append(catOrder, c)
		}
		cats[c]++
	}

	records := [][]string{
		{"ANALYTICS REPORT FOR " + month},
		{"Generated on", generated.Format("2006-01-02 15:04:05")},
		{},
		{"SUMMARY"},
		{"Total Incidents", strconv.Itoa(len(reports))},
		{"Resolved", strconv.Itoa(resolved)},
		{"Pending", strconv.Itoa(pending)},
		{},
		{"BY CATEGORY"},
	}
	for _, c := range catOrder {
		records = append(records, []string{c, strconv.Itoa(cats[c])})
	}
	records = append(records, []string{}, []string{"DETAILED LOG"}, []string{"ID", "Date", "Category", "Status", "Description"})
	for _, r := range reports {
		records = append(records, []string{
			strconv.FormatInt(r.ID, 10),
			formatTime(r.CreatedAt),
			r.CategoryText(),
			r.StatusText(),
			flatten(r.DescriptionText()),
		})
	}
	return writeAll(records)
}
