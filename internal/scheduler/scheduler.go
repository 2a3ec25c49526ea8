// Package scheduler runs the dashboard's background jobs: the periodic
// stats refresh and the monthly analytics snapshot.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/live"
	"github.com/campussafety/safety-dashboard/internal/services"
)

// Publisher receives each refreshed summary.
type Publisher interface {
	Publish(msgType string, data interface{}) error
}

// Scheduler owns the cron runner and the two dashboard jobs.
type Scheduler struct {
	cron      *cron.Cron
	analytics services.AnalyticsService
	snapshots services.SnapshotService
	publisher Publisher
	timeout   time.Duration
	log       *zap.Logger
}

// New creates a Scheduler. Jobs run with timeout as their context deadline.
func New(analytics services.AnalyticsService, snapshots services.SnapshotService, publisher Publisher, timeout time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cronLogger{log}))),
		analytics: analytics,
		snapshots: snapshots,
		publisher: publisher,
		timeout:   timeout,
		log:       log,
	}
}

// Register adds both jobs. An empty spec disables that job.
func (s *Scheduler) Register(refreshSpec, snapshotSpec string) error {
	if refreshSpec != "" {
		if _, err := s.cron.AddFunc(refreshSpec, func() { s.RefreshStats() }); err != nil {
			return fmt.Errorf("stats refresh schedule %q: %w", refreshSpec, err)
		}
	}
	if snapshotSpec != "" {
		if _, err := s.cron.AddFunc(snapshotSpec, func() { s.MonthlySnapshot() }); err != nil {
			return fmt.Errorf("snapshot schedule %q: %w", snapshotSpec, err)
		}
	}
	return nil
}

// Start runs the registered jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RefreshStats reloads the incident cache and publishes the new summary.
// It is not coordinated with refreshes triggered by page loads.
func (s *Scheduler) RefreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	sum, err := s.analytics.Summary(ctx)
	if err != nil {
		s.log.Warn("stats refresh failed", zap.Error(err))
		return
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(live.MessageStats, sum); err != nil {
		s.log.Warn("stats publish failed", zap.Error(err))
	}
}

// MonthlySnapshot stores analytics for the month that just ended.
func (s *Scheduler) MonthlySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*s.timeout)
	defer cancel()

	snap, err := s.snapshots.GeneratePrevious(ctx)
	switch {
	case errors.Is(err, services.ErrNoReportsForMonth):
		s.log.Info("no reports last month, snapshot skipped")
	case err != nil:
		s.log.Error("monthly snapshot failed", zap.Error(err))
	default:
		s.log.Info("monthly snapshot stored", zap.String("period", snap.Period), zap.Int("total", snap.Total))
	}
}

// cronLogger adapts zap to cron's logger interface.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
