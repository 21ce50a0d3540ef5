package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types on the social stream
const (
	EventPostCreated     = "post_created"
	EventPostDeleted     = "post_deleted"
	EventFollowRequested = "follow_requested"
	EventFollowAccepted  = "follow_accepted"
	EventUnfollowed      = "unfollowed"
)

// Stream and consumer group names
const (
	StreamSocial        = "stream:social"
	ConsumerGroupSocial = "social_workers"
)

// SocialEvent is the one event shape published to the social stream. Which
// fields are set depends on Type.
type SocialEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix seconds when the event occurred

	// Post events
	PostID   int64 `json:"post_id,omitempty"`
	AuthorID int64 `json:"author_id,omitempty"`

	// Follow events
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`

	// Approved distinguishes an accepted state reached by the followee
	// approving a pending request from an instant follow on a public
	// account. Only the former notifies the follower.
	Approved bool `json:"approved,omitempty"`
}

// NewPostCreatedEvent: a worker fans the post out to the feed caches of the
// author's accepted followers.
func NewPostCreatedEvent(postID, authorID int64) SocialEvent {
	return SocialEvent{
		Type:      EventPostCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewPostDeletedEvent: a worker removes the post from follower feed caches.
func NewPostDeletedEvent(postID, authorID int64) SocialEvent {
	return SocialEvent{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewFollowRequestedEvent: a worker records a follow_request notification
// for the followee. No feed changes happen until the request is accepted.
func NewFollowRequestedEvent(followerID, followeeID int64) SocialEvent {
	return SocialEvent{
		Type:       EventFollowRequested,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewFollowAcceptedEvent: a worker backfills the followee's recent posts
// into the follower's feed cache. Published both for instant follows on
// public accounts and for approved requests; approved requests additionally
// notify the follower.
func NewFollowAcceptedEvent(followerID, followeeID int64, approved bool) SocialEvent {
	return SocialEvent{
		Type:       EventFollowAccepted,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
		Approved:   approved,
	}
}

// NewUnfollowedEvent: a worker removes the followee's posts from the
// follower's feed cache.
func NewUnfollowedEvent(followerID, followeeID int64) SocialEvent {
	return SocialEvent{
		Type:       EventUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// ToMap serializes the event for Redis XADD. Streams hold field-value
// pairs, so the payload travels as JSON in a "data" field.
func (e SocialEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseSocialEvent decodes a SocialEvent from stream message values.
func ParseSocialEvent(values map[string]interface{}) (SocialEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return SocialEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event SocialEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return SocialEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
