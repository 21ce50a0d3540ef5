package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"socialite/internal/model"
	"socialite/internal/policy"
	"socialite/internal/queue"
	"socialite/internal/repository"
)

// PostService handles post business logic. Every read of another user's
// posts runs through the access policy with the explicit viewer identity.
type PostService struct {
	postRepo   repository.PostRepository
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	db         *sqlx.DB
	publisher  queue.Publisher
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, followRepo repository.FollowRepository, db *sqlx.DB, publisher queue.Publisher) *PostService {
	return &PostService{
		postRepo:   postRepo,
		userRepo:   userRepo,
		followRepo: followRepo,
		db:         db,
		publisher:  publisher,
	}
}

// Create stores a new post and bumps the author's post count in the same
// transaction.
func (s *PostService) Create(ctx context.Context, userID int64, req *model.CreatePostRequest) (*model.Post, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, model.ErrEmptyPost
	}
	if len(text) > model.MaxPostTextLength {
		return nil, model.ErrPostTooLong
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	post, err := s.postRepo.Create(ctx, tx, userID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := s.userRepo.IncrementPostCount(ctx, tx, userID, 1); err != nil {
		return nil, fmt.Errorf("failed to update post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(ctx, queue.NewPostCreatedEvent(post.ID, userID))

	return post, nil
}

// Delete soft-deletes a post owned by userID and decrements the post count.
func (s *PostService) Delete(ctx context.Context, postID, userID int64) error {
	authorID, err := s.postRepo.GetAuthorID(ctx, postID)
	if err != nil {
		return err
	}
	if authorID != userID {
		return model.ErrNotPostOwner
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.postRepo.Delete(ctx, tx, postID, userID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if err := s.userRepo.IncrementPostCount(ctx, tx, userID, -1); err != nil {
		return fmt.Errorf("failed to update post count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(ctx, queue.NewPostDeletedEvent(postID, userID))

	return nil
}

// GetUserPosts lists a user's posts if the access policy allows the viewer
// to see them. Denied viewers get model.ErrContentHidden, not an empty list,
// so handlers can distinguish "hidden" from "no posts yet".
func (s *PostService) GetUserPosts(ctx context.Context, userID int64, viewerID *int64, cursor *time.Time, limit int) (*model.PostListResponse, error) {
	if err := s.authorizeViewer(ctx, userID, viewerID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, nextCursor, err := s.postRepo.GetByUser(ctx, userID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}

	resp := &model.PostListResponse{
		Posts:   posts,
		HasMore: nextCursor != nil,
	}
	if nextCursor != nil {
		c := nextCursor.Format(time.RFC3339Nano)
		resp.NextCursor = &c
	}
	return resp, nil
}

// GetByID fetches a single post, gated by the author's visibility.
func (s *PostService) GetByID(ctx context.Context, postID int64, viewerID *int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeViewer(ctx, post.UserID, viewerID); err != nil {
		return nil, err
	}

	return post, nil
}

// authorizeViewer evaluates the access policy for viewerID against the
// content owner's current visibility.
func (s *PostService) authorizeViewer(ctx context.Context, ownerID int64, viewerID *int64) error {
	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return err
	}

	isOwner := viewerID != nil && *viewerID == ownerID

	accepted := false
	if viewerID != nil && !isOwner {
		accepted, err = s.followRepo.IsAccepted(ctx, *viewerID, ownerID)
		if err != nil {
			return err
		}
	}

	if !policy.Evaluate(owner.Visibility, isOwner, accepted).CanViewContent {
		return model.ErrContentHidden
	}
	return nil
}

func (s *PostService) publish(ctx context.Context, event queue.SocialEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamSocial, event); err != nil {
		log.Printf("[PostService] Failed to publish %s event: %v", event.Type, err)
	}
}
