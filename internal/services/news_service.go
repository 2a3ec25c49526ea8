package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campussafety/safety-dashboard/internal/models"
)

// NewsService publishes announcements read by the mobile app.
type NewsService interface {
	ListNews(ctx context.Context) ([]models.News, error)
	PublishNews(ctx context.Context, title, description string) (*models.News, error)
}

type newsService struct {
	db *gorm.DB
}

// NewNewsService creates a NewsService backed by db.
func NewNewsService(db *gorm.DB) NewsService {
	return &newsService{db: db}
}

// ListNews returns every news item, newest first.
func (s *newsService) ListNews(ctx context.Context) ([]models.News, error) {
	var news []models.News
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&news).Error; err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return news, nil
}

// PublishNews inserts a news item. Title and description are trimmed and
// both must be non-empty.
func (s *newsService) PublishNews(ctx context.Context, title, description string) (*models.News, error) {
	n := &models.News{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
	if n.Title == "" || n.Description == "" {
		return nil, ErrMissingNewsFields
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("publish news: %w", err)
	}
	return n, nil
}
