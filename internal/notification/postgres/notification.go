package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/notification"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// conn binds the query to a bounded per-call context so a slow store
// surfaces as an error instead of a hang.
func (r *NotificationRepository) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := apperrors.WithTimeout(ctx, 0)
	return r.db.WithContext(ctx), cancel
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	if err := db.Create(n).Error; err != nil {
		return apperrors.NewDataAccessError("failed to create notification", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var n notification.Notification
	err := db.Where("id = ?", id).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.NewDataAccessError("failed to get notification", err)
	}
	return &n, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var notifications []*notification.Notification
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, apperrors.NewDataAccessError("failed to list notifications", err)
	}
	return notifications, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	result := db.Model(&notification.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return apperrors.NewDataAccessError("failed to mark notification read", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	err := db.Model(&notification.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
	if err != nil {
		return apperrors.NewDataAccessError("failed to mark notifications read", err)
	}
	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()
	var count int64
	err := db.Model(&notification.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.NewDataAccessError("failed to count unread notifications", err)
	}
	return count, nil
}
