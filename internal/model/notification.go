package model

import "time"

// Notification types
const (
	NotificationFollowRequest  = "follow_request"
	NotificationFollowAccepted = "follow_accepted"
)

// Notification is a persisted event shown in a user's notification feed.
// Actor is the account that triggered it.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ActorID   int64     `db:"actor_id" json:"actor_id"`
	Type      string    `db:"type" json:"type"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined field, not in the notifications table
	Actor *UserSummary `json:"actor,omitempty"`
}

// NotificationListResponse is the notification inbox payload.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}
