package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/campussafety/safety-dashboard/internal/models"
)

// SettingsService stores per-admin display preferences.
type SettingsService interface {
	GetSettings(ctx context.Context, userID, email string) (*models.AdminSettings, error)
	SaveSettings(ctx context.Context, userID string, req models.SettingsRequest) (*models.AdminSettings, error)
}

type settingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a SettingsService backed by db.
func NewSettingsService(db *gorm.DB) SettingsService {
	return &settingsService{db: db}
}

// GetSettings returns the stored settings or, for an admin who never saved
// any, defaults derived from the account e-mail.
func (s *settingsService) GetSettings(ctx context.Context, userID, email string) (*models.AdminSettings, error) {
	var st models.AdminSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = models.AdminSettings{UserID: userID, Email: email}
	} else if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if st.Email == "" {
		st.Email = email
	}
	if strings.TrimSpace(st.DisplayName) == "" {
		st.DisplayName = DisplayNameFromEmail(st.Email)
	}
	return &st, nil
}

// SaveSettings creates or updates the admin's row. Blank name or e-mail leave the
// stored value unchanged.
func (s *settingsService) SaveSettings(ctx context.Context, userID string, req models.SettingsRequest) (*models.AdminSettings, error) {
	var st models.AdminSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&st).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	st.UserID = userID
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		st.DisplayName = name
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		st.Email = email
	}
	st.DarkMode = req.DarkMode
	st.EmailNotifications = req.EmailNotifications

	if st.ID == 0 {
		err = s.db.WithContext(ctx).Create(&st).Error
	} else {
		err = s.db.WithContext(ctx).Save(&st).Error
	}
	if err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return &st, nil
}

// DisplayNameFromEmail uses the local part of an address as a name.
func DisplayNameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// AvatarURL builds the generated avatar shown in the sidebar.
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=4F46E5&color=fff"
}
