package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/campussafety/safety-dashboard/internal/models"
)

const (
	RangeWeek    = "week"
	RangeMonth   = "month"
	RangeQuarter = "quarter"
	RangeYear    = "year"

	MetricCount    = "count"
	MetricSeverity = "severity"

	recentLimit    = 5
	locationLimit  = 7
	dashboardDays  = 7
	dayLabelFormat = "Jan 2"
)

var rangeDays = map[string]int{
	RangeWeek:    7,
	RangeMonth:   30,
	RangeQuarter: 90,
	RangeYear:    365,
}

var severityWeight = map[string]float64{
	models.SeverityLow:    1,
	models.SeverityMedium: 2,
	models.SeverityHigh:   3,
}

// AnalyticsService computes every dashboard and analytics aggregate from a
// fresh full fetch of the reports table.
type AnalyticsService interface {
	Summary(ctx context.Context) (*models.DashboardSummary, error)
	Analytics(ctx context.Context, rng, metric string) (*models.AnalyticsView, error)
	Report(ctx context.Context, rng string) (*models.AnalyticsReport, error)
}

type analyticsService struct {
	cache *IncidentCache
	now   func() time.Time
}

// NewAnalyticsService creates an AnalyticsService over the incident cache.
// A nil now uses time.Now.
func NewAnalyticsService(cache *IncidentCache, now func() time.Time) AnalyticsService {
	if now == nil {
		now = time.Now
	}
	return &analyticsService{cache: cache, now: now}
}

// Summary reloads the cache and computes the dashboard cards and charts.
func (s *analyticsService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	incidents, err := s.cache.Reload(ctx)
	if err != nil {
		return nil, err
	}
	sum := Summarize(incidents, s.now())
	return &sum, nil
}

// Analytics reloads the cache and builds the analytics page for rng and
// metric.
func (s *analyticsService) Analytics(ctx context.Context, rng, metric string) (*models.AnalyticsView, error) {
	incidents, err := s.cache.Reload(ctx)
	if err != nil {
		return nil, err
	}
	view, err := BuildAnalytics(incidents, rng, metric, s.now())
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Report builds the downloadable JSON analytics report for a range.
func (s *analyticsService) Report(ctx context.Context, rng string) (*models.AnalyticsReport, error) {
	view, err := s.Analytics(ctx, rng, MetricCount)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &models.AnalyticsReport{
		Title:     "Campus Safety Analytics Report - " + now.Format("2006-01-02"),
		Period:    view.Range,
		Generated: now.UTC(),
		Charts:    []string{"trend", "categories", "timing", "locations", "resolution"},
		Data: map[string]interface{}{
			"trend":      view.Trend,
			"categories": view.Categories,
			"timing":     view.TimeOfDay,
			"locations":  view.Locations,
			"resolution": view.StatusChart,
			"kpis":       view.KPIs,
		},
	}, nil
}

// Summarize computes the dashboard cards. Every canonical status and
// severity is present in the counts, zero when unused; other values seen in
// the data are counted under their own key.
func Summarize(incidents []models.Incident, now time.Time) models.DashboardSummary {
	sum := models.DashboardSummary{
		Total:          len(incidents),
		StatusCounts:   zeroCounts(models.Statuses),
		SeverityCounts: zeroCounts(models.Severities),
		Recent:         []models.RecentIncident{},
		GeneratedAt:    now.UTC(),
	}

	reporters := map[string]bool{}
	categories := map[string]int{}
	for _, inc := range incidents {
		sum.StatusCounts[inc.Status]++
		sum.SeverityCounts[inc.Severity]++
		reporters[inc.Reporter] = true
		categories[inc.Category]++
	}
	sum.UniqueReporters = len(reporters)
	sum.PendingBadge = sum.StatusCounts[models.StatusPending]

	for _, inc := range newestFirst(incidents) {
		if len(sum.Recent) == recentLimit {
			break
		}
		title := "No Title"
		if inc.Description != "" && inc.Description != "No Description" {
			title = truncate(inc.Description, 20)
		}
		sum.Recent = append(sum.Recent, models.RecentIncident{
			ID:         inc.ID,
			DisplayID:  inc.DisplayID,
			Title:      title,
			Category:   inc.Category,
			Status:     inc.Status,
			Severity:   inc.Severity,
			Location:   inc.Location,
			ReportedAt: inc.ReportedAt,
		})
	}

	sum.Categories = countChart("Incidents", categories)
	sum.Trend = dailyTrend(incidents, now, dashboardDays, MetricCount)
	return sum
}

// BuildAnalytics computes the analytics page for the last N days of rng.
func BuildAnalytics(incidents []models.Incident, rng, metric string, now time.Time) (models.AnalyticsView, error) {
	if rng == "" {
		rng = RangeWeek
	}
	days, ok := rangeDays[rng]
	if !ok {
		return models.AnalyticsView{}, fmt.Errorf("%w: got %q", ErrInvalidRange, rng)
	}
	if metric == "" {
		metric = MetricCount
	}
	if metric != MetricCount && metric != MetricSeverity {
		return models.AnalyticsView{}, fmt.Errorf("%w: got %q", ErrInvalidMetric, metric)
	}

	windowed := withinDays(incidents, now, days)
	view := models.AnalyticsView{
		Range:         rng,
		Metric:        metric,
		Trend:         dailyTrend(windowed, now, days, metric),
		Categories:    categoryShares(windowed),
		TimeOfDay:     timeOfDay(windowed, now.Location()),
		Locations:     locationBreakdown(windowed),
		StatusChart:   statusChart(windowed),
		KPIs:          kpis(windowed, incidents, now),
		IncidentCount: len(windowed),
	}
	return view, nil
}

func zeroCounts(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}

func newestFirst(incidents []models.Incident) []models.Incident {
	out := copyIncidents(incidents)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReportedAt.After(out[j].ReportedAt)
	})
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// withinDays keeps incidents reported on today or the days-1 days before it.
func withinDays(incidents []models.Incident, now time.Time, days int) []models.Incident {
	from := startOfDay(now).AddDate(0, 0, -(days - 1))
	out := []models.Incident{}
	for _, inc := range incidents {
		if !inc.ReportedAt.In(now.Location()).Before(from) {
			out = append(out, inc)
		}
	}
	return out
}

// dailyTrend buckets incidents into one slot per day ending today. Days with
// no incidents are zero.
func dailyTrend(incidents []models.Incident, now time.Time, days int, metric string) models.ChartData {
	today := startOfDay(now)
	first := today.AddDate(0, 0, -(days - 1))
	labels := make([]string, days)
	counts := make([]float64, days)
	weights := make([]float64, days)
	for i := 0; i < days; i++ {
		labels[i] = first.AddDate(0, 0, i).Format(dayLabelFormat)
	}
	for _, inc := range incidents {
		day := startOfDay(inc.ReportedAt.In(now.Location()))
		if day.Before(first) || day.After(today) {
			continue
		}
		idx := dayIndex(first, day)
		if idx < 0 || idx >= days {
			continue
		}
		counts[idx]++
		weights[idx] += severityWeight[inc.Severity]
	}

	if metric == MetricSeverity {
		avg := make([]float64, days)
		for i := range counts {
			if counts[i] > 0 {
				avg[i] = round1(weights[i] / counts[i])
			}
		}
		return models.ChartData{Labels: labels, Datasets: []models.Dataset{{Label: "Avg Severity", Data: avg}}}
	}
	return models.ChartData{Labels: labels, Datasets: []models.Dataset{{Label: "Incident Count", Data: counts}}}
}

// dayIndex counts calendar days between first and day, which is correct
// across daylight saving changes.
func dayIndex(first, day time.Time) int {
	n := 0
	for d := first; d.Before(day); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func categoryShares(incidents []models.Incident) []models.CategoryShare {
	counts := map[string]int{}
	for _, inc := range incidents {
		counts[inc.Category]++
	}
	shares := make([]models.CategoryShare, 0, len(counts))
	for cat, n := range counts {
		shares = append(shares, models.CategoryShare{
			Category:   cat,
			Count:      n,
			Percentage: math.Round(float64(n) / float64(len(incidents)) * 100),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count == shares[j].Count {
			return shares[i].Category < shares[j].Category
		}
		return shares[i].Count > shares[j].Count
	})
	return shares
}

// TimeOfDayLabels are the twelve two-hour buckets, starting at midnight.
func TimeOfDayLabels() []string {
	labels := make([]string, 12)
	for i := range labels {
		h := i * 2
		suffix := "AM"
		if h >= 12 {
			suffix = "PM"
		}
		h12 := h % 12
		if h12 == 0 {
			h12 = 12
		}
		labels[i] = fmt.Sprintf("%d%s", h12, suffix)
	}
	return labels
}

func timeOfDay(incidents []models.Incident, loc *time.Location) models.ChartData {
	buckets := make([]float64, 12)
	for _, inc := range incidents {
		buckets[inc.ReportedAt.In(loc).Hour()/2]++
	}
	return models.ChartData{Labels: TimeOfDayLabels(), Datasets: []models.Dataset{{Label: "Incidents", Data: buckets}}}
}

func locationBreakdown(incidents []models.Incident) models.ChartData {
	type row struct {
		name     string
		total    int
		resolved int
	}
	byLoc := map[string]*row{}
	for _, inc := range incidents {
		r, ok := byLoc[inc.Location]
		if !ok {
			r = &row{name: inc.Location}
			byLoc[inc.Location] = r
		}
		r.total++
		if inc.Status == models.StatusResolved {
			r.resolved++
		}
	}
	rows := make([]*row, 0, len(byLoc))
	for _, r := range byLoc {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].total == rows[j].total {
			return rows[i].name < rows[j].name
		}
		return rows[i].total > rows[j].total
	})
	if len(rows) > locationLimit {
		rows = rows[:locationLimit]
	}

	chart := models.ChartData{
		Labels:   make([]string, 0, len(rows)),
		Datasets: []models.Dataset{{Label: "Incidents", Data: []float64{}}, {Label: "Resolved", Data: []float64{}}},
	}
	for _, r := range rows {
		chart.Labels = append(chart.Labels, r.name)
		chart.Datasets[0].Data = append(chart.Datasets[0].Data, float64(r.total))
		chart.Datasets[1].Data = append(chart.Datasets[1].Data, float64(r.resolved))
	}
	return chart
}

func statusChart(incidents []models.Incident) models.ChartData {
	counts := zeroCounts(models.Statuses)
	for _, inc := range incidents {
		counts[inc.Status]++
	}
	chart := models.ChartData{Datasets: []models.Dataset{{Label: "Incidents"}}}
	for _, st := range orderedKeys(counts, models.Statuses) {
		chart.Labels = append(chart.Labels, st)
		chart.Datasets[0].Data = append(chart.Datasets[0].Data, float64(counts[st]))
	}
	return chart
}

func kpis(windowed, all []models.Incident, now time.Time) models.KPIs {
	k := models.KPIs{TotalIncidents: len(windowed)}
	for _, inc := range windowed {
		if inc.Status == models.StatusResolved {
			k.ResolvedIncidents++
		}
	}
	if k.TotalIncidents > 0 {
		k.ResolutionRate = round1(float64(k.ResolvedIncidents) / float64(k.TotalIncidents) * 100)
	}

	active := []models.Incident{}
	for _, inc := range all {
		if inc.Status == models.StatusPending || inc.Status == models.StatusInvestigating {
			active = append(active, inc)
		}
	}
	k.ActiveReports = dailyTrend(active, now, dashboardDays, MetricCount)
	k.ActiveReports.Datasets[0].Label = "Active Reports"
	return k
}

// countChart orders labels by count, largest first.
func countChart(label string, counts map[string]int) models.ChartData {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] == counts[keys[j]] {
			return keys[i] < keys[j]
		}
		return counts[keys[i]] > counts[keys[j]]
	})
	chart := models.ChartData{Labels: keys, Datasets: []models.Dataset{{Label: label, Data: make([]float64, 0, len(keys))}}}
	for _, k := range keys {
		chart.Datasets[0].Data = append(chart.Datasets[0].Data, float64(counts[k]))
	}
	return chart
}

// orderedKeys returns canonical keys first, then any others alphabetically.
func orderedKeys(counts map[string]int, canonical []string) []string {
	seen := map[string]bool{}
	keys := []string{}
	for _, k := range canonical {
		keys = append(keys, k)
		seen[k] = true
	}
	extra := []string{}
	for k := range counts {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// StatusLabel capitalises a status for display.
func StatusLabel(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
