package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/settings"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := apperrors.WithTimeout(ctx, 0)
	return r.db.WithContext(ctx), cancel
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*settings.Settings, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var s settings.Settings
	err := db.Where("user_id = ?", userID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("settings not found", apperrors.ErrCodeSettingsNotFound)
		}
		return nil, apperrors.NewDataAccessError("failed to get settings", err)
	}
	return &s, nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, s *settings.Settings) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(s).Error
	if err != nil {
		return apperrors.NewDataAccessError("failed to save settings", err)
	}
	return nil
}
