package model

import (
	"errors"
	"time"
)

// FollowStatus is the status of a directed follow relationship.
type FollowStatus string

const (
	FollowStatusPending  FollowStatus = "pending"
	FollowStatusAccepted FollowStatus = "accepted"
	FollowStatusDeclined FollowStatus = "declined"
)

// Follow is a directed edge from follower to followee. At most one row
// exists per ordered pair; the store enforces uniqueness.
type Follow struct {
	FollowerID int64        `db:"follower_id" json:"follower_id"`
	FolloweeID int64        `db:"followee_id" json:"followee_id"`
	Status     FollowStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// FollowState names what a follow attempt resulted in.
type FollowState string

const (
	// FollowStateAccepted: the edge was created in accepted state.
	FollowStateAccepted FollowState = "accepted"

	// FollowStatePending: the edge was created as a pending request.
	FollowStatePending FollowState = "pending"

	// FollowStateAlreadyAccepted: an accepted edge already existed; no-op.
	FollowStateAlreadyAccepted FollowState = "already_accepted"

	// FollowStateAlreadyPending: a pending request already existed; no-op.
	FollowStateAlreadyPending FollowState = "already_pending"
)

// FollowResult is returned by a follow attempt.
type FollowResult struct {
	State FollowState `json:"state"`
}

// FollowRequest is a pending incoming request shown in the requests inbox.
type FollowRequest struct {
	Requester UserSummary `json:"requester"`
	CreatedAt time.Time   `json:"created_at"`
}

// FollowRequestListResponse lists pending incoming follow requests.
type FollowRequestListResponse struct {
	Requests []FollowRequest `json:"requests"`
}

// FollowListResponse is a cursor-paginated follower/following page.
type FollowListResponse struct {
	Users      []UserSummary `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

var (
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
	ErrNotFollowing     = errors.New("not following this user")
	ErrNoPendingRequest = errors.New("no pending follow request from this user")
)
