package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	errors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/auth"
)

// ProfileRepository implements auth.ProfileRepository using GORM.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) auth.ProfileRepository {
	return &ProfileRepository{db: db}
}

// conn binds the query to a bounded per-call context.
func (r *ProfileRepository) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := errors.WithTimeout(ctx, 0)
	return r.db.WithContext(ctx), cancel
}

func (r *ProfileRepository) GetPasswordForEmail(ctx context.Context, email string) (string, string, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var profile auth.Profile
	err := db.Select("id", "password_hash").Where("email = ?", email).First(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", "", auth.ErrInvalidCredentials
		}
		return "", "", errors.NewDataAccessError("failed to load credentials", err)
	}
	return profile.PasswordHash, profile.ID, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, userID string) (*auth.Profile, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var profile auth.Profile
	err := db.Where("id = ?", userID).First(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, errors.NewDataAccessError("failed to load profile", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile *auth.Profile) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	if err := db.Create(profile).Error; err != nil {
		return errors.NewDataAccessError("failed to create profile", err)
	}
	return nil
}

func (r *ProfileRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	err := db.Model(&auth.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": at,
			"updated_at":    time.Now(),
		}).Error
	if err != nil {
		return errors.NewDataAccessError("failed to update last login", err)
	}
	return nil
}
