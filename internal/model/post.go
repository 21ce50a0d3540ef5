package model

import (
	"errors"
	"time"
)

// Post is a content item owned by exactly one account. Visibility is not
// stored per post: reads are gated by the owner's current profile
// visibility through the access policy.
type Post struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Text      string     `db:"text" json:"text"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`

	// Joined field, not in the posts table
	Author *UserSummary `json:"author,omitempty"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Text string `json:"text"`
}

// PostListResponse is a cursor-paginated list of a user's posts.
type PostListResponse struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// FeedPost is an enriched post for feed display.
type FeedPost struct {
	Post
	Author UserSummary `json:"author"`
}

// FeedResponse is the paginated feed response.
type FeedResponse struct {
	Posts      []FeedPost `json:"posts"`
	NextCursor *string    `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

const (
	// MaxPostTextLength bounds post bodies.
	MaxPostTextLength = 5000
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotPostOwner = errors.New("not the owner of this post")
	ErrEmptyPost    = errors.New("post text is required")
	ErrPostTooLong  = errors.New("post text too long")

	// ErrContentHidden is returned when the access policy denies the viewer.
	ErrContentHidden = errors.New("content not visible to this viewer")
)
