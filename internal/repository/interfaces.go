package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"socialite/internal/cache"
	"socialite/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	UpdateVisibility(ctx context.Context, userID int64, v model.Visibility) error
	IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementPostCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
}

type FollowRepository interface {
	// Upsert atomically inserts the edge with the given status, or reports
	// the status that was already there. A declined edge is overwritten
	// (re-request). Returns the edge's status after the call and whether
	// the desired status was written (false means a live pending or
	// accepted edge was left untouched).
	Upsert(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64, status model.FollowStatus) (stored model.FollowStatus, applied bool, err error)

	// UpdateStatus moves an edge from one status to another. Returns false
	// when no edge in the from status exists.
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64, from, to model.FollowStatus) (bool, error)

	// Delete removes the edge and reports the status it had. found is false
	// when there was nothing to delete.
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (status model.FollowStatus, found bool, err error)

	// GetStatus returns the edge status for the ordered pair, or
	// policy.StatusAbsent when no edge exists.
	GetStatus(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error)

	// IsAccepted reports whether follower has an accepted follow of followee.
	IsAccepted(ctx context.Context, followerID, followeeID int64) (bool, error)

	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	GetPendingRequests(ctx context.Context, userID int64, limit int) ([]model.FollowRequest, error)

	// CheckAccepted batch-checks which of followeeIDs the follower has an
	// accepted follow of.
	CheckAccepted(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)

	// Accepted-edge ID lists for feed fan-out and cache warming.
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, userID int64, text string) (*model.Post, error)
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error)
	Delete(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error
	GetByUser(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.Post, *time.Time, error)
	GetAuthorID(ctx context.Context, postID int64) (int64, error)
	// Feed support
	GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error)
	GetFeedPostIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.PostScore, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, userID, actorID int64, notifType string) error
	List(ctx context.Context, userID int64, limit int) ([]model.Notification, int, error)
	MarkAllAsRead(ctx context.Context, userID int64) error
}

type RefreshTokenRepository interface {
	// Create stores the token and fills in its ID and CreatedAt.
	Create(ctx context.Context, token *model.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)

	// Revoke marks one token revoked; MarkRotated additionally links it to
	// the token that replaced it, for reuse-detection forensics.
	Revoke(ctx context.Context, id string) error
	MarkRotated(ctx context.Context, id, replacedByID string) error
	RevokeAllForUser(ctx context.Context, userID int64) error

	// DeleteExpired removes tokens whose expiry is further in the past than
	// olderThan, returning how many were purged.
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}
