package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"socialite/internal/model"
	"socialite/internal/policy"
	"socialite/internal/queue"
	"socialite/internal/repository"
)

// FollowService runs the follow state machine. The pure transition rules
// live in the policy package; this service resolves the inputs, applies the
// transition through an atomic upsert, and keeps the follower/following
// counts in the same transaction so a read after Follow returns sees them
// already updated.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	db         *sqlx.DB
	publisher  queue.Publisher
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		db:         db,
		publisher:  publisher,
	}
}

// Follow creates or re-requests the edge follower -> followee. Public
// followees accept instantly; followers-only and private followees queue a
// pending request. Repeating a follow reports the existing state instead of
// creating a second edge.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID int64) (*model.FollowResult, error) {
	if followerID == followeeID {
		return nil, model.ErrCannotFollowSelf
	}

	followee, err := s.userRepo.GetByID(ctx, followeeID)
	if err != nil {
		return nil, err
	}

	requiresApproval := policy.RequiresApproval(followee.Visibility)
	desired, _ := policy.FollowTransition(policy.StatusAbsent, requiresApproval)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stored, applied, err := s.followRepo.Upsert(ctx, tx, followerID, followeeID, desired)
	if err != nil {
		return nil, err
	}

	// Derive the result from what the store actually did. Under a racing
	// duplicate follow the loser's write is not applied and the winner's
	// status comes back, which is exactly the "already following" answer
	// the caller should get — and counts move only on the applied write.
	state, becameAccepted := policy.FollowOutcome(stored, applied)

	if becameAccepted {
		if err := s.userRepo.IncrementFollowerCount(ctx, tx, followeeID, 1); err != nil {
			return nil, err
		}
		if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, 1); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	// Events go out only after commit so workers never see an edge that
	// might roll back.
	switch state {
	case model.FollowStateAccepted:
		s.publish(ctx, queue.NewFollowAcceptedEvent(followerID, followeeID, false))
	case model.FollowStatePending:
		s.publish(ctx, queue.NewFollowRequestedEvent(followerID, followeeID))
	}

	return &model.FollowResult{State: state}, nil
}

// Unfollow removes the edge follower -> followee. It also cancels a pending
// request. Removing an edge that does not exist is a no-op, not an error.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, found, err := s.followRepo.Delete(ctx, tx, followerID, followeeID)
	if err != nil {
		return err
	}

	// Counts track accepted edges only; cancelling a pending or declined
	// edge never touched them.
	wasAccepted := found && status == model.FollowStatusAccepted
	if wasAccepted {
		if err := s.userRepo.IncrementFollowerCount(ctx, tx, followeeID, -1); err != nil {
			return err
		}
		if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, -1); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if wasAccepted {
		s.publish(ctx, queue.NewUnfollowedEvent(followerID, followeeID))
	}

	return nil
}

// Approve moves requester's pending request toward ownerID to accepted.
func (s *FollowService) Approve(ctx context.Context, ownerID, requesterID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.followRepo.UpdateStatus(ctx, tx, requesterID, ownerID, model.FollowStatusPending, model.FollowStatusAccepted)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNoPendingRequest
	}

	if err := s.userRepo.IncrementFollowerCount(ctx, tx, ownerID, 1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, tx, requesterID, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.publish(ctx, queue.NewFollowAcceptedEvent(requesterID, ownerID, true))
	return nil
}

// Decline marks requester's pending request toward ownerID as declined.
// The row is kept so the edge stays unique, but a declined requester may
// follow again later, which re-runs the request flow.
func (s *FollowService) Decline(ctx context.Context, ownerID, requesterID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.followRepo.UpdateStatus(ctx, tx, requesterID, ownerID, model.FollowStatusPending, model.FollowStatusDeclined)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNoPendingRequest
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetPendingRequests lists incoming pending requests for the requests inbox.
func (s *FollowService) GetPendingRequests(ctx context.Context, userID int64, limit int) (*model.FollowRequestListResponse, error) {
	requests, err := s.followRepo.GetPendingRequests(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []model.FollowRequest{}
	}
	return &model.FollowRequestListResponse{Requests: requests}, nil
}

// GetFollowers returns accepted followers of userID with cursor pagination,
// enriched with whether the viewer follows each of them. The enrichment is
// one batch query, not N+1, and its failure degrades to is_following=false
// rather than failing the page.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	users, nextCursor, err := s.followRepo.GetFollowers(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return s.buildFollowList(ctx, users, nextCursor, viewerID), nil
}

// GetFollowing returns the accepted followees of userID. See GetFollowers.
func (s *FollowService) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	users, nextCursor, err := s.followRepo.GetFollowing(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return s.buildFollowList(ctx, users, nextCursor, viewerID), nil
}

func (s *FollowService) buildFollowList(ctx context.Context, users []model.UserSummary, nextCursor *time.Time, viewerID *int64) *model.FollowListResponse {
	if viewerID != nil {
		users = s.enrichWithFollowStatus(ctx, *viewerID, users)
	}

	var nextCursorStr *string
	if nextCursor != nil {
		str := nextCursor.Format(time.RFC3339Nano)
		nextCursorStr = &str
	}

	return &model.FollowListResponse{
		Users:      users,
		NextCursor: nextCursorStr,
		HasMore:    nextCursor != nil,
	}
}

func (s *FollowService) enrichWithFollowStatus(ctx context.Context, viewerID int64, users []model.UserSummary) []model.UserSummary {
	if len(users) == 0 {
		return users
	}

	userIDs := make([]int64, len(users))
	for i, user := range users {
		userIDs[i] = user.ID
	}

	followMap, err := s.followRepo.CheckAccepted(ctx, viewerID, userIDs)
	if err != nil {
		return users
	}

	for i := range users {
		users[i].IsFollowing = followMap[users[i].ID]
	}
	return users
}

func (s *FollowService) publish(ctx context.Context, event queue.SocialEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamSocial, event); err != nil {
		log.Printf("[FollowService] Failed to publish %s: follower=%d followee=%d err=%v",
			event.Type, event.FollowerID, event.FolloweeID, err)
	}
}
