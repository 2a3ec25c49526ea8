package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campussafety/safety-dashboard/internal/models"
)

// IncidentCache keeps the last full fetch of the reports table as incident
// view models. Pages reload it on every visit and after every mutation;
// filtering and search run against the cached copy.
type IncidentCache struct {
	reports ReportService
	log     *zap.Logger

	mu        sync.RWMutex
	incidents []models.Incident
	loadedAt  time.Time
}

// NewIncidentCache creates an empty cache. Nothing is loaded until the first
// Reload.
func NewIncidentCache(reports ReportService, log *zap.Logger) *IncidentCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &IncidentCache{reports: reports, log: log}
}

// Reload fetches every report and replaces the cached slice. On error the
// previous contents are kept.
func (c *IncidentCache) Reload(ctx context.Context) ([]models.Incident, error) {
	reports, err := c.reports.ListReports(ctx)
	if err != nil {
		c.log.Warn("incident cache reload failed", zap.Error(err))
		return nil, err
	}
	incidents := ToIncidents(reports)

	c.mu.Lock()
	c.incidents = incidents
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.log.Debug("incident cache reloaded", zap.Int("incidents", len(incidents)))
	return copyIncidents(incidents), nil
}

// Snapshot returns a copy of the cached incidents.
func (c *IncidentCache) Snapshot() []models.Incident {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyIncidents(c.incidents)
}

// Current returns the cached incidents, loading them first if the cache has
// never been filled.
func (c *IncidentCache) Current(ctx context.Context) ([]models.Incident, error) {
	if c.LoadedAt().IsZero() {
		return c.Reload(ctx)
	}
	return c.Snapshot(), nil
}

// LoadedAt is the time of the last successful reload.
func (c *IncidentCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Find looks up one cached incident by id.
func (c *IncidentCache) Find(id int64) (models.Incident, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, inc := range c.incidents {
		if inc.ID == id {
			return inc, true
		}
	}
	return models.Incident{}, false
}

func copyIncidents(in []models.Incident) []models.Incident {
	out := make([]models.Incident, len(in))
	copy(out, in)
	return out
}
