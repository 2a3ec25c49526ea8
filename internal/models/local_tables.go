package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tables below are owned by the dashboard itself. reports and news belong to
// the mobile backend and are never migrated from here.

// AdminSettings holds the display preferences of one admin account.
type AdminSettings struct {
	ID                 uint      `json:"-" gorm:"primaryKey;autoIncrement;column:id"`
	UserID             string    `json:"user_id" gorm:"column:user_id;size:64;uniqueIndex;not null"`
	DisplayName        string    `json:"display_name" gorm:"column:display_name;size:100"`
	Email              string    `json:"email" gorm:"column:email;size:255"`
	DarkMode           bool      `json:"dark_mode" gorm:"column:dark_mode"`
	EmailNotifications bool      `json:"email_notifications" gorm:"column:email_notifications"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (AdminSettings) TableName() string {
	return "admin_settings"
}

// AnalyticsSnapshot is one generated periodic analytics report.
type AnalyticsSnapshot struct {
	ID          uint           `json:"id" gorm:"primaryKey;autoIncrement;column:id"`
	Period      string         `json:"period" gorm:"column:period;size:7;uniqueIndex;not null"`
	GeneratedAt time.Time      `json:"generated_at" gorm:"column:generated_at;not null"`
	Total       int            `json:"total" gorm:"column:total"`
	Resolved    int            `json:"resolved" gorm:"column:resolved"`
	Pending     int            `json:"pending" gorm:"column:pending"`
	Metrics     datatypes.JSON `json:"metrics" gorm:"column:metrics"`
	ArchiveURL  *string        `json:"archive_url" gorm:"column:archive_url"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (AnalyticsSnapshot) TableName() string {
	return "analytics_snapshots"
}

const (
	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// JobRun is the execution log of a scheduled job.
type JobRun struct {
	ID                   uint       `json:"id" gorm:"primaryKey;autoIncrement;column:id"`
	ExecutionID          string     `json:"execution_id" gorm:"column:execution_id;size:36;uniqueIndex;not null"`
	Job                  string     `json:"job" gorm:"column:job;size:50;index"`
	StartedAt            time.Time  `json:"started_at" gorm:"column:started_at;not null;index"`
	FinishedAt           *time.Time `json:"finished_at" gorm:"column:finished_at"`
	Status               string     `json:"status" gorm:"column:status;size:20;index"`
	Phase                string     `json:"phase" gorm:"column:phase;size:50"`
	RecordsProcessed     *int       `json:"records_processed" gorm:"column:records_processed"`
	ErrorMessage         *string    `json:"error_message" gorm:"column:error_message"`
	ExecutionTimeSeconds *int       `json:"execution_time_seconds" gorm:"column:execution_time_seconds"`
	CreatedAt            time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (JobRun) TableName() string {
	return "job_runs"
}
