package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialite/internal/cache"
	"socialite/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *sqlx.Tx, userID int64, text string) (*model.Post, error) {
	query := `
		INSERT INTO posts (user_id, text, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, user_id, text, created_at, updated_at
	`

	var p model.Post
	if err := tx.GetContext(ctx, &p, query, userID, text); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return &p, nil
}

func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	query := `
		SELECT id, user_id, text, created_at, updated_at, deleted_at
		FROM posts
		WHERE id = $1 AND deleted_at IS NULL
	`

	var p model.Post
	err := r.db.GetContext(ctx, &p, query, postID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &p, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, text, created_at, updated_at, deleted_at
		FROM posts
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	var posts []model.Post
	if err := r.db.SelectContext(ctx, &posts, query, pq.Array(postIDs)); err != nil {
		return nil, fmt.Errorf("failed to get posts by ids: %w", err)
	}
	return posts, nil
}

// Delete soft-deletes a post, but only when it belongs to userID.
func (r *postRepository) Delete(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error {
	query := `
		UPDATE posts SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	result, err := tx.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// GetByUser lists a user's posts newest first with created_at cursor
// pagination, same scheme as the follow lists.
func (r *postRepository) GetByUser(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.Post, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT id, user_id, text, created_at, updated_at, deleted_at
			FROM posts
			WHERE user_id = $1 AND deleted_at IS NULL
			ORDER BY created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT id, user_id, text, created_at, updated_at, deleted_at
			FROM posts
			WHERE user_id = $1 AND deleted_at IS NULL AND created_at < $2
			ORDER BY created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, cursor, limit + 1}
	}

	var posts []model.Post
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, nil, fmt.Errorf("failed to get user posts: %w", err)
	}

	var nextCursor *time.Time
	if len(posts) > limit {
		posts = posts[:limit]
		nextCursor = &posts[len(posts)-1].CreatedAt
	}

	return posts, nextCursor, nil
}

func (r *postRepository) GetAuthorID(ctx context.Context, postID int64) (int64, error) {
	query := `SELECT user_id FROM posts WHERE id = $1 AND deleted_at IS NULL`

	var authorID int64
	err := r.db.GetContext(ctx, &authorID, query, postID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, model.ErrPostNotFound
		}
		return 0, fmt.Errorf("failed to get post author: %w", err)
	}
	return authorID, nil
}

func (r *postRepository) GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error) {
	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS ts
		FROM posts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2
	`

	type row struct {
		ID int64 `db:"id"`
		TS int64 `db:"ts"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent posts: %w", err)
	}

	scores := make([]cache.PostScore, len(rows))
	for i, r := range rows {
		scores[i] = cache.PostScore{PostID: r.ID, Timestamp: r.TS}
	}
	return scores, nil
}

func (r *postRepository) GetFeedPostIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.PostScore, error) {
	if len(followeeIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS ts
		FROM posts
		WHERE user_id = ANY($1) AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2
	`

	type row struct {
		ID int64 `db:"id"`
		TS int64 `db:"ts"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(followeeIDs), limit); err != nil {
		return nil, fmt.Errorf("failed to get feed post ids: %w", err)
	}

	scores := make([]cache.PostScore, len(rows))
	for i, r := range rows {
		scores[i] = cache.PostScore{PostID: r.ID, Timestamp: r.TS}
	}
	return scores, nil
}
