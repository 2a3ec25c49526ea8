package services

import "errors"

var (
	ErrReportNotFound     = errors.New("report not found")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidSeverity    = errors.New("invalid severity")
	ErrBuildingNotFound   = errors.New("building not found")
	ErrNoReports          = errors.New("no reports to export")
	ErrNoReportsForMonth  = errors.New("no reports found for this month")
	ErrInvalidMonth       = errors.New("month must be formatted as YYYY-MM")
	ErrInvalidRange       = errors.New("range must be week, month, quarter or year")
	ErrInvalidMetric      = errors.New("metric must be count or severity")
	ErrMissingNewsFields  = errors.New("title and description are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrUnauthorized       = errors.New("session is missing or expired")
)
