package services

import (
	"context"
	"sort"

	"github.com/campussafety/safety-dashboard/internal/models"
)

// UserService derives reporter profiles from the reports table. Users are
// not stored anywhere.
type UserService interface {
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
}

type userService struct {
	reports ReportService
}

// NewUserService creates a UserService that derives reporters from reports.
func NewUserService(reports ReportService) UserService {
	return &userService{reports: reports}
}

// ListUsers fetches every report and groups it by reporter.
func (s *userService) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	reports, err := s.reports.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	return GroupUsers(reports), nil
}

// GroupUsers groups reports by student id, with missing ids collected under
// "Anonymous". The result is sorted by last activity, most recent first.
func GroupUsers(reports []models.Report) []models.UserProfile {
	byID := map[string]*models.UserProfile{}
	for _, r := range reports {
		id := orDefault(r.StudentIDText(), "Anonymous")
		u, ok := byID[id]
		if !ok {
			u = &models.UserProfile{
				ID:         id,
				Role:       "Student",
				Status:     "Active",
				LastActive: r.CreatedAt,
				FirstSeen:  r.CreatedAt,
			}
			byID[id] = u
		}
		u.IncidentCount++
		if r.CreatedAt.After(u.LastActive) {
			u.LastActive = r.CreatedAt
		}
		if r.CreatedAt.Before(u.FirstSeen) {
			u.FirstSeen = r.CreatedAt
		}
	}

	users := make([]models.UserProfile, 0, len(byID))
	for _, u := range byID {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].LastActive.Equal(users[j].LastActive) {
			return users[i].ID < users[j].ID
		}
		return users[i].LastActive.After(users[j].LastActive)
	})
	return users
}
