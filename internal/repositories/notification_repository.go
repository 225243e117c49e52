package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"livechat-service/internal/models"
)

// NotificationRepository stores admin dashboard notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	var stored models.Notification
	err := r.db.GetContext(ctx, &stored, `INSERT INTO notifications (title, message, type, related_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, title, message, type, related_id, is_read, created_at`,
		n.Title, n.Message, n.Type, n.RelatedID)
	return stored, err
}
