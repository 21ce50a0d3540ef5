package model

// FollowButtonState is what the viewer's follow control should show for a
// profile: nothing at all (own profile or unauthenticated), a follow action,
// a pending request, or an active follow.
type FollowButtonState string

const (
	FollowButtonNone      FollowButtonState = "none"
	FollowButtonFollow    FollowButtonState = "follow"
	FollowButtonPending   FollowButtonState = "pending"
	FollowButtonFollowing FollowButtonState = "following"
)

// ProfileResponse is the assembled profile view: the account's public
// fields, the access decision for this viewer, and the relationship state.
// Counts come straight from the account row, which the follow transaction
// keeps in step with the set of accepted edges.
type ProfileResponse struct {
	User             *PublicProfile    `json:"user"`
	CanViewContent   bool              `json:"can_view_content"`
	FollowState      FollowButtonState `json:"follow_state"`
	RequiresApproval bool              `json:"requires_approval"`
}

// PublicProfile is the subset of User safe to show to any viewer.
type PublicProfile struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	DisplayName    *string    `json:"display_name"`
	AvatarURL      *string    `json:"avatar_url"`
	Bio            *string    `json:"bio"`
	Visibility     Visibility `json:"profile_visibility"`
	FollowerCount  int        `json:"follower_count"`
	FollowingCount int        `json:"following_count"`
	PostCount      int        `json:"post_count"`
}

// NewPublicProfile strips a User down to its viewer-safe fields.
func NewPublicProfile(u *User) *PublicProfile {
	return &PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		AvatarURL:      u.AvatarURL,
		Bio:            u.Bio,
		Visibility:     u.Visibility,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		PostCount:      u.PostCount,
	}
}
