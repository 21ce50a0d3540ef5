package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialite/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, userID, actorID int64, notifType string) error {
	query := `
		INSERT INTO notifications (user_id, actor_id, type, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := r.db.ExecContext(ctx, query, userID, actorID, notifType); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// List returns the newest notifications joined with their actors, plus the
// unread count for the badge.
func (r *notificationRepository) List(ctx context.Context, userID int64, limit int) ([]model.Notification, int, error) {
	query := `
		SELECT n.id, n.user_id, n.actor_id, n.type, n.is_read, n.created_at,
		       u.id AS "actor.id", u.username AS "actor.username",
		       u.display_name AS "actor.display_name", u.avatar_url AS "actor.avatar_url"
		FROM notifications n
		JOIN users u ON u.id = n.actor_id
		WHERE n.user_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2
	`

	type notifRow struct {
		model.Notification
		ActorID2         int64   `db:"actor.id"`
		ActorUsername    string  `db:"actor.username"`
		ActorDisplayName *string `db:"actor.display_name"`
		ActorAvatarURL   *string `db:"actor.avatar_url"`
	}

	var rows []notifRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]model.Notification, len(rows))
	for i, row := range rows {
		n := row.Notification
		n.Actor = &model.UserSummary{
			ID:          row.ActorID2,
			Username:    row.ActorUsername,
			DisplayName: row.ActorDisplayName,
			AvatarURL:   row.ActorAvatarURL,
		}
		notifications[i] = n
	}

	var unread int
	countQuery := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`
	if err := r.db.GetContext(ctx, &unread, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return notifications, unread, nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
