package repository

import (
	"context"

	"github.com/oggyb/vivahvows/internal/db"

	"gorm.io/gorm"
)

// NotificationRepository provides data access for the durable
// notification records.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository bound to the given DB connection.
func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// Create persists a notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *db.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListFor returns a user's notifications, newest first.
func (r *NotificationRepository) ListFor(ctx context.Context, userID uint64, limit int) ([]db.Notification, error) {
	var items []db.Notification
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&items).Error
	return items, err
}

// MarkAllRead flags every unread notification of the user as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// CountUnread counts a user's unread notifications.
// Used as the DB fallback behind the Redis counter.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
