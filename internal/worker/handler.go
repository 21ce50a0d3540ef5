package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"socialite/internal/cache"
	"socialite/internal/model"
	"socialite/internal/queue"
)

// FollowerProvider fetches accepted follower IDs. Abstracts the repository
// layer so the worker doesn't depend on the DB directly.
type FollowerProvider interface {
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

// RecentPostsProvider fetches a user's recent posts as (postID, timestamp)
// pairs, for feed backfill and removal.
type RecentPostsProvider interface {
	GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error)
}

// NotificationCreator records a notification for a user.
type NotificationCreator interface {
	Create(ctx context.Context, userID, actorID int64, notifType string) error
}

// Handler processes social events from the queue: feed fan-out and
// follow notifications.
type Handler struct {
	feedCache        cache.FeedCache
	followerProvider FollowerProvider
	postsProvider    RecentPostsProvider
	notifCreator     NotificationCreator // nil disables notifications
}

func NewHandler(
	feedCache cache.FeedCache,
	followerProvider FollowerProvider,
	postsProvider RecentPostsProvider,
	notifCreator NotificationCreator,
) *Handler {
	return &Handler{
		feedCache:        feedCache,
		followerProvider: followerProvider,
		postsProvider:    postsProvider,
		notifCreator:     notifCreator,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.SocialEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostCreated:
		err = h.handlePostCreated(ctx, event)
	case queue.EventPostDeleted:
		err = h.handlePostDeleted(ctx, event)
	case queue.EventFollowRequested:
		err = h.handleFollowRequested(ctx, event)
	case queue.EventFollowAccepted:
		err = h.handleFollowAccepted(ctx, event)
	case queue.EventUnfollowed:
		err = h.handleUnfollowed(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handlePostCreated fans out a new post to the feed caches of the author's
// accepted followers. Pending requesters have no accepted edge and so are
// never fanned out to.
func (h *Handler) handlePostCreated(ctx context.Context, event queue.SocialEvent) error {
	log.Printf("[Worker] PostCreated: post=%d author=%d", event.PostID, event.AuthorID)

	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	var failCount int
	for _, followerID := range followers {
		if err := h.feedCache.AddPost(ctx, followerID, event.PostID, event.Timestamp); err != nil {
			log.Printf("[Worker] PostCreated: failed to add to user=%d err=%v", followerID, err)
			failCount++
			// Keep going; one follower's cache failure shouldn't stop the rest
		}
	}

	// Authors see their own posts in their feed
	if err := h.feedCache.AddPost(ctx, event.AuthorID, event.PostID, event.Timestamp); err != nil {
		log.Printf("[Worker] PostCreated: failed to add to author's own feed err=%v", err)
	}

	log.Printf("[Worker] PostCreated DONE: post=%d fanout=%d failed=%d",
		event.PostID, len(followers)+1, failCount)

	return nil
}

// handlePostDeleted removes a post from all followers' feed caches.
func (h *Handler) handlePostDeleted(ctx context.Context, event queue.SocialEvent) error {
	log.Printf("[Worker] PostDeleted: post=%d author=%d", event.PostID, event.AuthorID)

	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	var failCount int
	for _, followerID := range followers {
		if err := h.feedCache.RemovePost(ctx, followerID, event.PostID); err != nil {
			log.Printf("[Worker] PostDeleted: failed to remove from user=%d err=%v", followerID, err)
			failCount++
		}
	}

	if err := h.feedCache.RemovePost(ctx, event.AuthorID, event.PostID); err != nil {
		log.Printf("[Worker] PostDeleted: failed to remove from author's own feed err=%v", err)
	}

	log.Printf("[Worker] PostDeleted DONE: post=%d fanout=%d failed=%d",
		event.PostID, len(followers)+1, failCount)

	return nil
}

// handleFollowRequested notifies the followee that a request is waiting.
// No feed changes happen until the request is accepted.
func (h *Handler) handleFollowRequested(ctx context.Context, event queue.SocialEvent) error {
	log.Printf("[Worker] FollowRequested: follower=%d followee=%d", event.FollowerID, event.FolloweeID)

	if h.notifCreator == nil {
		return nil
	}

	if err := h.notifCreator.Create(ctx, event.FolloweeID, event.FollowerID, model.NotificationFollowRequest); err != nil {
		return fmt.Errorf("create follow request notification: %w", err)
	}
	return nil
}

// handleFollowAccepted backfills the followee's recent posts into the
// follower's feed. Approved requests also notify the follower; an instant
// follow of a public account does not, since nothing was waiting.
func (h *Handler) handleFollowAccepted(ctx context.Context, event queue.SocialEvent) error {
	log.Printf("[Worker] FollowAccepted: follower=%d followee=%d approved=%v",
		event.FollowerID, event.FolloweeID, event.Approved)

	const backfillLimit = 20
	posts, err := h.postsProvider.GetRecentPostsByUser(ctx, event.FolloweeID, backfillLimit)
	if err != nil {
		return fmt.Errorf("get recent posts: %w", err)
	}

	var failCount int
	for _, p := range posts {
		if err := h.feedCache.AddPost(ctx, event.FollowerID, p.PostID, p.Timestamp); err != nil {
			log.Printf("[Worker] FollowAccepted: failed to add post=%d err=%v", p.PostID, err)
			failCount++
		}
	}

	log.Printf("[Worker] FollowAccepted: follower=%d backfilled=%d failed=%d",
		event.FollowerID, len(posts), failCount)

	if event.Approved && h.notifCreator != nil {
		if err := h.notifCreator.Create(ctx, event.FollowerID, event.FolloweeID, model.NotificationFollowAccepted); err != nil {
			log.Printf("[Worker] FollowAccepted: failed to create notification: %v", err)
		}
	}

	return nil
}

// handleUnfollowed removes the followee's posts from the follower's feed.
func (h *Handler) handleUnfollowed(ctx context.Context, event queue.SocialEvent) error {
	log.Printf("[Worker] Unfollowed: follower=%d followee=%d", event.FollowerID, event.FolloweeID)

	// Higher limit than backfill: everything of theirs still cached should go
	const removeLimit = 100
	posts, err := h.postsProvider.GetRecentPostsByUser(ctx, event.FolloweeID, removeLimit)
	if err != nil {
		return fmt.Errorf("get posts to remove: %w", err)
	}

	var failCount int
	for _, p := range posts {
		if err := h.feedCache.RemovePost(ctx, event.FollowerID, p.PostID); err != nil {
			log.Printf("[Worker] Unfollowed: failed to remove post=%d err=%v", p.PostID, err)
			failCount++
		}
	}

	log.Printf("[Worker] Unfollowed DONE: follower=%d removed=%d failed=%d",
		event.FollowerID, len(posts), failCount)

	return nil
}
