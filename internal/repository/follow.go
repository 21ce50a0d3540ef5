package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialite/internal/model"
	"socialite/internal/policy"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Upsert is the single atomic insert-or-return-existing operation for a
// follow edge. Uniqueness lives in the store (unique index on the ordered
// pair), so two racing follows cannot create duplicate edges.
//
// A fresh edge inserts; a declined edge is re-requestable, so the conflict
// arm overwrites it and refreshes created_at. A live pending or accepted
// edge matches neither arm: the statement returns no row and the edge is
// read back as-is with applied=false. Deriving insert-vs-conflict from the
// statement's own row (instead of a pre-read) stays correct when two
// follows race: the loser's conflict resolves against the winner's
// committed row, which the loser's snapshot cannot see.
func (r *followRepository) Upsert(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64, status model.FollowStatus) (model.FollowStatus, bool, error) {
	upsert := `
		INSERT INTO follows (follower_id, followee_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (follower_id, followee_id) DO UPDATE
		SET status = EXCLUDED.status, created_at = NOW()
		WHERE follows.status = 'declined'
		RETURNING status
	`
	read := `SELECT status FROM follows WHERE follower_id = $1 AND followee_id = $2`

	for attempt := 0; attempt < 2; attempt++ {
		var stored model.FollowStatus
		err := tx.GetContext(ctx, &stored, upsert, followerID, followeeID, status)
		if err == nil {
			return stored, true, nil
		}
		if err != sql.ErrNoRows {
			return policy.StatusAbsent, false, fmt.Errorf("upsert follow: %w", err)
		}

		// Conflict with a live edge. Read its status in a fresh statement;
		// a concurrent unfollow can remove it in between, in which case the
		// insert is retried.
		err = tx.GetContext(ctx, &stored, read, followerID, followeeID)
		if err == nil {
			return stored, false, nil
		}
		if err != sql.ErrNoRows {
			return policy.StatusAbsent, false, fmt.Errorf("read follow after conflict: %w", err)
		}
	}
	return policy.StatusAbsent, false, fmt.Errorf("upsert follow %d->%d: concurrent writes kept the edge moving", followerID, followeeID)
}

func (r *followRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64, from, to model.FollowStatus) (bool, error) {
	query := `
		UPDATE follows SET status = $1
		WHERE follower_id = $2 AND followee_id = $3 AND status = $4
	`
	result, err := tx.ExecContext(ctx, query, to, followerID, followeeID, from)
	if err != nil {
		return false, fmt.Errorf("update follow status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (model.FollowStatus, bool, error) {
	query := `
		DELETE FROM follows
		WHERE follower_id = $1 AND followee_id = $2
		RETURNING status
	`
	var status model.FollowStatus
	err := tx.GetContext(ctx, &status, query, followerID, followeeID)
	if err == sql.ErrNoRows {
		return policy.StatusAbsent, false, nil
	}
	if err != nil {
		return policy.StatusAbsent, false, fmt.Errorf("delete follow: %w", err)
	}
	return status, true, nil
}

func (r *followRepository) GetStatus(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error) {
	query := `SELECT status FROM follows WHERE follower_id = $1 AND followee_id = $2`
	var status model.FollowStatus
	err := r.db.GetContext(ctx, &status, query, followerID, followeeID)
	if err == sql.ErrNoRows {
		return policy.StatusAbsent, nil
	}
	if err != nil {
		return policy.StatusAbsent, fmt.Errorf("get follow status: %w", err)
	}
	return status, nil
}

func (r *followRepository) IsAccepted(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM follows
			WHERE follower_id = $1 AND followee_id = $2 AND status = 'accepted'
		)
	`
	var accepted bool
	if err := r.db.GetContext(ctx, &accepted, query, followerID, followeeID); err != nil {
		return false, fmt.Errorf("check accepted follow: %w", err)
	}
	return accepted, nil
}

// GetFollowers returns accepted followers of userID, newest first, with
// created_at cursor pagination: fetch limit+1, and when more than limit come
// back, trim and use the last row's timestamp as the next cursor. Pending and
// declined edges never appear in these lists.
func (r *followRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at
			FROM follows f
			JOIN users u ON u.id = f.follower_id
			WHERE f.followee_id = $1 AND f.status = 'accepted'
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at
			FROM follows f
			JOIN users u ON u.id = f.follower_id
			WHERE f.followee_id = $1 AND f.status = 'accepted' AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, cursor, limit + 1}
	}

	users, nextCursor, err := r.selectFollowPage(ctx, query, args, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("get followers: %w", err)
	}
	return users, nextCursor, nil
}

// GetFollowing returns the accepted followees of userID. Pagination works
// the same as GetFollowers.
func (r *followRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at
			FROM follows f
			JOIN users u ON u.id = f.followee_id
			WHERE f.follower_id = $1 AND f.status = 'accepted'
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at
			FROM follows f
			JOIN users u ON u.id = f.followee_id
			WHERE f.follower_id = $1 AND f.status = 'accepted' AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, cursor, limit + 1}
	}

	users, nextCursor, err := r.selectFollowPage(ctx, query, args, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("get following: %w", err)
	}
	return users, nextCursor, nil
}

func (r *followRepository) selectFollowPage(ctx context.Context, query string, args []interface{}, limit int) ([]model.UserSummary, *time.Time, error) {
	type userWithTime struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}

	var results []userWithTime
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, nil, err
	}

	var nextCursor *time.Time
	if len(results) > limit {
		results = results[:limit]
		nextCursor = &results[len(results)-1].CreatedAt
	}

	var users []model.UserSummary
	for _, result := range results {
		users = append(users, result.UserSummary)
	}
	return users, nextCursor, nil
}

func (r *followRepository) GetPendingRequests(ctx context.Context, userID int64, limit int) ([]model.FollowRequest, error) {
	query := `
		SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1 AND f.status = 'pending'
		ORDER BY f.created_at DESC
		LIMIT $2
	`

	type requestRow struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}

	var rows []requestRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("get pending requests: %w", err)
	}

	requests := make([]model.FollowRequest, len(rows))
	for i, row := range rows {
		requests[i] = model.FollowRequest{
			Requester: row.UserSummary,
			CreatedAt: row.CreatedAt,
		}
	}
	return requests, nil
}

func (r *followRepository) CheckAccepted(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if len(followeeIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `
		SELECT followee_id FROM follows
		WHERE follower_id = $1 AND followee_id = ANY($2) AND status = 'accepted'
	`
	var acceptedIDs []int64
	err := r.db.SelectContext(ctx, &acceptedIDs, query, followerID, pq.Array(followeeIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check accepted follows: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range followeeIDs {
		result[id] = false
	}
	for _, id := range acceptedIDs {
		result[id] = true
	}
	return result, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT follower_id FROM follows WHERE followee_id = $1 AND status = 'accepted'`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT followee_id FROM follows WHERE follower_id = $1 AND status = 'accepted'`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("get followee ids: %w", err)
	}
	return ids, nil
}
