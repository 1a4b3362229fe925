// internal/services/settings_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/infonomu/bni/internal/models"
)

type SettingsService struct {
	db *gorm.DB
}

type UpdateSettingsRequest struct {
	Title     *string    `json:"title,omitempty"`
	Notice    *string    `json:"notice,omitempty"`
	OpenDate  *time.Time `json:"open_date,omitempty"`
	CloseDate *time.Time `json:"close_date,omitempty"`
	IsOpen    *bool      `json:"is_open,omitempty"`
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// GetSettings returns the singleton row, creating the default one on
// first access.
func (s *SettingsService) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	err := s.db.WithContext(ctx).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.Settings{
			Title:  "BNI 마포 설선물관",
			IsOpen: true,
		}
		if err := s.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create settings: %w", err)
		}
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &settings, nil
}

func (s *SettingsService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*models.Settings, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Notice != nil {
		updates["notice"] = *req.Notice
	}
	if req.OpenDate != nil {
		updates["open_date"] = *req.OpenDate
	}
	if req.CloseDate != nil {
		updates["close_date"] = *req.CloseDate
	}
	if req.IsOpen != nil {
		updates["is_open"] = *req.IsOpen
	}
	if len(updates) == 0 {
		return settings, nil
	}

	if err := s.db.WithContext(ctx).Model(settings).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}
