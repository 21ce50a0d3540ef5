package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialite/internal/model"
)

// The transaction paths of FollowService (Follow, Unfollow, Approve, Decline)
// are exercised end to end by tests/follow_integration_test.go against a real
// database. The unit tests here cover the guards that run before any
// transaction starts, and the read paths.

func TestFollowService_Follow_SelfFollowRejected(t *testing.T) {
	mockUsers := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			t.Fatal("user lookup should not run for a self-follow")
			return nil, nil
		},
	}
	svc := NewFollowService(&mockFollowRepository{}, mockUsers, nil, nil)

	_, err := svc.Follow(context.Background(), 7, 7)
	if !errors.Is(err, model.ErrCannotFollowSelf) {
		t.Errorf("expected ErrCannotFollowSelf, got: %v", err)
	}
}

func TestFollowService_Follow_FolloweeNotFound(t *testing.T) {
	svc := NewFollowService(&mockFollowRepository{}, &mockUserRepository{}, nil, nil)

	_, err := svc.Follow(context.Background(), 1, 999)
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got: %v", err)
	}
}

func TestFollowService_GetPendingRequests_EmptyIsNotNil(t *testing.T) {
	svc := NewFollowService(&mockFollowRepository{}, &mockUserRepository{}, nil, nil)

	resp, err := svc.GetPendingRequests(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	// Empty inbox serializes as [], not null
	if resp.Requests == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(resp.Requests) != 0 {
		t.Errorf("expected 0 requests, got %d", len(resp.Requests))
	}
}

func TestFollowService_GetFollowers_EnrichmentDegradesGracefully(t *testing.T) {
	next := time.Now()
	viewerID := int64(5)
	mockFollows := &mockFollowRepository{
		getFollowersFn: func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
			return []model.UserSummary{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}, &next, nil
		},
		checkAcceptedFn: func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
			return nil, errors.New("redis is on fire")
		},
	}
	svc := NewFollowService(mockFollows, &mockUserRepository{}, nil, nil)

	resp, err := svc.GetFollowers(context.Background(), 1, nil, 20, &viewerID)
	if err != nil {
		t.Fatalf("enrichment failure should not fail the page: %v", err)
	}

	if len(resp.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp.Users))
	}
	for _, u := range resp.Users {
		if u.IsFollowing {
			t.Errorf("user %d should fall back to is_following=false", u.ID)
		}
	}
	if !resp.HasMore || resp.NextCursor == nil {
		t.Error("expected cursor to survive enrichment failure")
	}
}

func TestFollowService_GetFollowing_FollowStatusEnrichment(t *testing.T) {
	viewerID := int64(5)
	var capturedIDs []int64
	mockFollows := &mockFollowRepository{
		getFollowingFn: func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
			return []model.UserSummary{{ID: 10, Username: "carol"}, {ID: 11, Username: "dave"}}, nil, nil
		},
		checkAcceptedFn: func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
			capturedIDs = followeeIDs
			return map[int64]bool{10: true}, nil
		},
	}
	svc := NewFollowService(mockFollows, &mockUserRepository{}, nil, nil)

	resp, err := svc.GetFollowing(context.Background(), 1, nil, 20, &viewerID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(capturedIDs) != 2 {
		t.Errorf("enrichment should batch all listed IDs, got %v", capturedIDs)
	}
	if !resp.Users[0].IsFollowing {
		t.Error("carol should be marked as followed by the viewer")
	}
	if resp.Users[1].IsFollowing {
		t.Error("dave should not be marked as followed")
	}
	if resp.HasMore {
		t.Error("no next cursor means no more pages")
	}
}
