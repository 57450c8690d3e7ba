package store

import (
	"context"

	"balmar-shop/internal/models"
)

// CreateNotification inserts a notification
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, type, link)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING is_read, created_at`

	return s.db.GetContext(ctx, n, query, n.ID, n.UserID, n.Title, n.Message, n.Type, n.Link)
}

// ListNotifications returns a user's notifications, newest first
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	list := []models.Notification{}
	err := s.db.SelectContext(ctx, &list,
		"SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT 100", userID)
	return list, err
}

// MarkNotificationRead flags one of the user's notifications as read
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	return expectOneRow(res, err, "notification", id)
}
