package models

import "time"

// Report is a row of the remote "reports" table written by the mobile app.
// Text columns are nullable upstream, so they are kept as pointers and
// resolved through the accessors below.
type Report struct {
	ID          int64     `json:"id" gorm:"column:id;primaryKey"`
	Description *string   `json:"description" gorm:"column:description"`
	Category    *string   `json:"category" gorm:"column:category"`
	Status      *string   `json:"status" gorm:"column:status"`
	Severity    *string   `json:"severity" gorm:"column:severity"`
	Location    *string   `json:"location" gorm:"column:location"`
	StudentID   *string   `json:"student_id" gorm:"column:student_id"`
	ImageURL    *string   `json:"image_url" gorm:"column:image_url"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Report) TableName() string {
	return "reports"
}

const (
	StatusPending       = "pending"
	StatusInvestigating = "investigating"
	StatusResolved      = "resolved"
	StatusClosed        = "closed"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Statuses lists the canonical workflow states in display order.
var Statuses = []string{StatusPending, StatusInvestigating, StatusResolved, StatusClosed}

// Severities lists the canonical severities from least to most urgent.
var Severities = []string{SeverityLow, SeverityMedium, SeverityHigh}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r Report) DescriptionText() string { return deref(r.Description) }
func (r Report) CategoryText() string    { return deref(r.Category) }
func (r Report) StatusText() string      { return deref(r.Status) }
func (r Report) SeverityText() string    { return deref(r.Severity) }
func (r Report) LocationText() string    { return deref(r.Location) }
func (r Report) StudentIDText() string   { return deref(r.StudentID) }
func (r Report) ImageURLText() string    { return deref(r.ImageURL) }
