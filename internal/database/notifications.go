package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reservas/internal/models"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (id, user_id, message, reservation_id, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, query, n.ID, n.UserID, n.Message, n.ReservationID, now)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.CreatedAt = now
	return nil
}

// GetUserNotifications returns a recipient's notifications, newest first.
func (db *DB) GetUserNotifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	query := `SELECT id, user_id, message, reservation_id, created_at
	          FROM notifications WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var reservationID sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &reservationID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.ReservationID = reservationID.String
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}
