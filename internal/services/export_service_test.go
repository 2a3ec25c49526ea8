package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/campussafety/safety-dashboard/internal/models"
)

func fixedNow() time.Time { return baseTime }

func newExportService(t *testing.T, reports ...models.Report) ExportService {
	t.Helper()
	db := setupTestDB(t)
	seedReports(t, db, reports...)
	rs := NewReportService(db)
	cache := NewIncidentCache(rs, nil)
	return NewExportService(rs, cache, NewAnalyticsService(cache, fixedNow), fixedNow)
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v\n%s", err, data)
	}
	return records
}

func TestFullDumpCSV_RoundTripsTrickyFields(t *testing.T) {
	r := report(7, "pending", "high", "Theft, Armed", `Hall "B", room 2`, "S-7",
		"He said \"stop\", then ran\nout the door", baseTime)
	r.ImageURL = ptrString("https://img/a.jpg,https://img/b.jpg")

	data, err := FullDumpCSV([]models.Report{r})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	records := readCSV(t, data)
	if len(records) != 2 {
		t.Fatalf("expected header and 1 row, got %d records", len(records))
	}
	if strings.Join(records[0], "|") != strings.Join(FullExportHeader, "|") {
		t.Errorf("unexpected header %v", records[0])
	}
	want := []string{
		"7", "2025-03-14T12:00:00Z", "Theft, Armed", "pending", "high", `Hall "B", room 2`, "S-7",
		`He said "stop", then ran out the door`, "https://img/a.jpg,https://img/b.jpg",
	}
	for i := range want {
		if records[1][i] != want[i] {
			t.Errorf("column %s: got %q, want %q", FullExportHeader[i], records[1][i], want[i])
		}
	}
}

func TestFullCSV_NewestFirstAndFilename(t *testing.T) {
	svc := newExportService(t, sampleReports()...)

	exp, err := svc.FullCSV(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if exp.Filename != "Full_Export_2025-03-14.csv" || exp.ContentType != ContentTypeCSV {
		t.Errorf("unexpected export metadata %+v", exp)
	}
	records := readCSV(t, exp.Data)
	if len(records) != 7 || records[1][0] != "1" || records[6][0] != "6" {
		t.Errorf("expected rows 1..6 newest first, got %v", records)
	}
	if exp.Rows != 6 {
		t.Errorf("expected 6 rows, got %d", exp.Rows)
	}
}

func TestFullCSV_Empty(t *testing.T) {
	svc := newExportService(t)
	if _, err := svc.FullCSV(context.Background()); !errors.Is(err, ErrNoReports) {
		t.Errorf("expected ErrNoReports, got: %v", err)
	}
}

func TestMonthlyCSV_Sections(t *testing.T) {
	svc := newExportService(t,
		report(1, "resolved", "low", "Theft", "Gym", "S1", "Wallet", time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)),
		report(2, "pending", "high", "", "Lab", "S2", "Spill\nin lab", time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC)),
		report(3, "Pending", "low", "Theft", "Gym", "S3", "Phone", time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)),
		report(4, "pending", "low", "Fire", "Gym", "S4", "March", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
	)

	exp, err := svc.MonthlyCSV(context.Background(), "2025-02")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if exp.Filename != "Analytics_2025-02.csv" || exp.Rows != 3 {
		t.Errorf("unexpected export %+v", exp)
	}

	records := readCSV(t, exp.Data)
	text := string(exp.Data)
	for _, want := range []string{
		"ANALYTICS REPORT FOR 2025-02\n",
		"Generated on,2025-03-14 12:00:00\n",
		"SUMMARY\nTotal Incidents,3\nResolved,1\nPending,2\n",
		"BY CATEGORY\n",
		"Other,1\n",
		"DETAILED LOG\nID,Date,Category,Status,Description\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in report:\n%s", want, text)
		}
	}
	if strings.Contains(text, "March") {
		t.Error("report from another month leaked into the export")
	}
	last := records[len(records)-1]
	if len(last) != 5 {
		t.Fatalf("expected 5 columns in detailed log, got %v", last)
	}
	for _, rec := range records {
		if len(rec) == 5 && rec[0] == "2" && rec[4] != "Spill in lab" {
			t.Errorf("newline not flattened: %q", rec[4])
		}
	}
}

func TestMonthlyCSV_Errors(t *testing.T) {
	svc := newExportService(t, sampleReports()...)
	if _, err := svc.MonthlyCSV(context.Background(), "2025-13"); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got: %v", err)
	}
	if _, err := svc.MonthlyCSV(context.Background(), "March"); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got: %v", err)
	}
	if _, err := svc.MonthlyCSV(context.Background(), "2019-01"); !errors.Is(err, ErrNoReportsForMonth) {
		t.Errorf("expected ErrNoReportsForMonth, got: %v", err)
	}
}

func TestIncidentsCSV_UsesFilter(t *testing.T) {
	svc := newExportService(t, sampleReports()...)

	exp, err := svc.IncidentsCSV(context.Background(), models.IncidentFilter{Statuses: []string{"pending"}})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	records := readCSV(t, exp.Data)
	if len(records) != 3 {
		t.Fatalf("expected header and 2 pending rows, got %d", len(records))
	}
	for _, rec := range records[1:] {
		if rec[3] != "pending" {
			t.Errorf("unexpected status %q", rec[3])
		}
	}
	if records[2][6] != "S3" || records[2][2] != "General" {
		t.Errorf("expected mapped values in incidents export, got %v", records[2])
	}

	if _, err := svc.IncidentsCSV(context.Background(), models.IncidentFilter{Search: "zzz"}); !errors.Is(err, ErrNoReports) {
		t.Errorf("expected ErrNoReports for empty view, got: %v", err)
	}
}

func TestAnalyticsJSON(t *testing.T) {
	svc := newExportService(t, sampleReports()...)

	exp, err := svc.AnalyticsJSON(context.Background(), RangeMonth)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if exp.Filename != "analytics_report_2025-03-14.json" || exp.ContentType != ContentTypeJSON {
		t.Errorf("unexpected export %+v", exp)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(exp.Data, &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"title", "period", "generated", "charts", "data"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if body["period"] != "month" {
		t.Errorf("unexpected period %v", body["period"])
	}
}
