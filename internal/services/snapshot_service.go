package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campussafety/safety-dashboard/internal/models"
)

const JobMonthlySnapshot = "monthly_snapshot"

// MaxJobRuns bounds one job history listing.
const MaxJobRuns = 200

// Archiver stores generated files somewhere durable and returns where.
type Archiver interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// SnapshotService generates the monthly analytics snapshot and keeps its
// history and the job execution log.
type SnapshotService interface {
	Generate(ctx context.Context, month string) (*models.AnalyticsSnapshot, error)
	GeneratePrevious(ctx context.Context) (*models.AnalyticsSnapshot, error)
	ListSnapshots(ctx context.Context) ([]models.AnalyticsSnapshot, error)
	ListJobRuns(ctx context.Context, limit int) ([]models.JobRun, error)
}

type snapshotService struct {
	db      *gorm.DB
	reports ReportService
	archive Archiver
	log     *zap.Logger
	now     func() time.Time
}

// NewSnapshotService accepts a nil archive, in which case generated CSVs are
// not kept.
func NewSnapshotService(db *gorm.DB, reports ReportService, archive Archiver, log *zap.Logger, now func() time.Time) SnapshotService {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &snapshotService{db: db, reports: reports, archive: archive, log: log, now: now}
}

// run tracks one execution in job_runs.
type run struct {
	s     *snapshotService
	row   models.JobRun
	start time.Time
}

func (s *snapshotService) startRun(ctx context.Context, job string) *run {
	r := &run{s: s, start: s.now()}
	r.row = models.JobRun{
		ExecutionID: uuid.New().String(),
		Job:         job,
		StartedAt:   r.start.UTC(),
		Status:      models.JobStatusRunning,
		Phase:       "start",
	}
	if err := s.db.WithContext(ctx).Create(&r.row).Error; err != nil {
		s.log.Warn("could not record job run", zap.String("job", job), zap.Error(err))
	}
	s.log.Info("job started", zap.String("job", job), zap.String("execution_id", r.row.ExecutionID))
	return r
}

func (r *run) phase(ctx context.Context, phase string) {
	r.row.Phase = phase
	r.save(ctx)
}

func (r *run) finish(ctx context.Context, records int, err error) {
	finished := r.s.now()
	secs := int(finished.Sub(r.start).Seconds())
	r.row.FinishedAt = &finished
	r.row.RecordsProcessed = &records
	r.row.ExecutionTimeSeconds = &secs
	r.row.Status = models.JobStatusSuccess
	if err != nil {
		msg := err.Error()
		r.row.Status = models.JobStatusFailed
		r.row.ErrorMessage = &msg
	}
	r.save(ctx)

	fields := []zap.Field{
		zap.String("job", r.row.Job),
		zap.String("execution_id", r.row.ExecutionID),
		zap.String("phase", r.row.Phase),
		zap.Int("records", records),
	}
	if err != nil {
		r.s.log.Error("job failed", append(fields, zap.Error(err))...)
		return
	}
	r.s.log.Info("job finished", fields...)
}

func (r *run) save(ctx context.Context) {
	if r.row.ID == 0 {
		return
	}
	if err := r.s.db.WithContext(ctx).Save(&r.row).Error; err != nil {
		r.s.log.Warn("could not update job run", zap.String("execution_id", r.row.ExecutionID), zap.Error(err))
	}
}

// Generate builds the snapshot for month (YYYY-MM), archives its CSV and
// stores it, replacing an earlier snapshot of the same month.
func (s *snapshotService) Generate(ctx context.Context, month string) (*models.AnalyticsSnapshot, error) {
	start, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	r := s.startRun(ctx, JobMonthlySnapshot)

	r.phase(ctx, "fetch")
	reports, err := s.reports.ListReports(ctx)
	if err != nil {
		r.finish(ctx, 0, err)
		return nil, err
	}
	inMonth := ReportsInMonth(reports, start)
	if len(inMonth) == 0 {
		r.finish(ctx, 0, nil)
		return nil, ErrNoReportsForMonth
	}

	r.phase(ctx, "aggregate")
	metrics := SnapshotMetrics(inMonth)
	raw, err := json.Marshal(metrics)
	if err != nil {
		r.finish(ctx, len(inMonth), err)
		return nil, fmt.Errorf("encode metrics: %w", err)
	}

	snap := models.AnalyticsSnapshot{
		Period:      month,
		GeneratedAt: s.now().UTC(),
		Total:       len(inMonth),
		Resolved:    metrics.Resolved,
		Pending:     metrics.Pending,
		Metrics:     datatypes.JSON(raw),
	}

	if s.archive != nil {
		r.phase(ctx, "archive")
		csvData, err := MonthlyReportCSV(month, inMonth, s.now())
		if err != nil {
			r.finish(ctx, len(inMonth), err)
			return nil, err
		}
		loc, err := s.archive.Put(ctx, fmt.Sprintf("snapshots/Analytics_%s.csv", month), ContentTypeCSV, csvData)
		if err != nil {
			r.finish(ctx, len(inMonth), err)
			return nil, fmt.Errorf("archive snapshot: %w", err)
		}
		snap.ArchiveURL = &loc
	}

	r.phase(ctx, "persist")
	if err := s.upsert(ctx, &snap); err != nil {
		r.finish(ctx, len(inMonth), err)
		return nil, err
	}

	r.phase(ctx, "complete")
	r.finish(ctx, len(inMonth), nil)
	return &snap, nil
}

// GeneratePrevious snapshots the calendar month before now.
func (s *snapshotService) GeneratePrevious(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	now := s.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.Generate(ctx, first.AddDate(0, -1, 0).Format("2006-01"))
}

func (s *snapshotService) upsert(ctx context.Context, snap *models.AnalyticsSnapshot) error {
	var existing models.AnalyticsSnapshot
	err := s.db.WithContext(ctx).Where("period = ?", snap.Period).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(snap).Error; err != nil {
			return fmt.Errorf("store snapshot: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load snapshot: %w", err)
	}
	snap.ID = existing.ID
	snap.CreatedAt = existing.CreatedAt
	if err := s.db.WithContext(ctx).Save(snap).Error; err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns stored snapshots, newest period first.
func (s *snapshotService) ListSnapshots(ctx context.Context) ([]models.AnalyticsSnapshot, error) {
	var snaps []models.AnalyticsSnapshot
	if err := s.db.WithContext(ctx).Order("period DESC").Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// ListJobRuns returns the newest job runs. limit defaults to 20 and is
// capped at MaxJobRuns.
func (s *snapshotService) ListJobRuns(ctx context.Context, limit int) ([]models.JobRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxJobRuns {
		limit = MaxJobRuns
	}
	var runs []models.JobRun
	if err := s.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	return runs, nil
}

// Metrics stored with each snapshot.
type Metrics struct {
	Total           int            `json:"total_incidents"`
	Resolved        int            `json:"resolved"`
	Pending         int            `json:"pending"`
	ResolutionRate  float64        `json:"resolution_rate"`
	UniqueReporters int            `json:"unique_reporters"`
	ByStatus        map[string]int `json:"by_status"`
	BySeverity      map[string]int `json:"by_severity"`
	ByCategory      map[string]int `json:"by_category"`
}

// SnapshotMetrics aggregates the reports of one month.
func SnapshotMetrics(reports []models.Report) Metrics {
	m := Metrics{
		Total:      len(reports),
		ByStatus:   zeroCounts(models.Statuses),
		BySeverity: zeroCounts(models.Severities),
		ByCategory: map[string]int{},
	}
	reporters := map[string]bool{}
	for _, r := range reports {
		inc := ToIncident(r)
		m.ByStatus[inc.Status]++
		m.BySeverity[inc.Severity]++
		m.ByCategory[orDefault(strings.TrimSpace(r.CategoryText()), "Other")]++
		reporters[inc.Reporter] = true
	}
	m.Resolved = m.ByStatus[models.StatusResolved]
	m.Pending = m.ByStatus[models.StatusPending]
	m.UniqueReporters = len(reporters)
	if m.Total > 0 {
		m.ResolutionRate = round1(float64(m.Resolved) / float64(m.Total) * 100)
	}
	return m
}
