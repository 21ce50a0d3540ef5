package model

import (
	"errors"
	"time"
)

// User represents an account in the system.
type User struct {
	ID             int64      `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	PasswordHashed string     `db:"password_hashed" json:"-"` // "-" hides from JSON output
	DisplayName    *string    `db:"display_name" json:"display_name"`
	AvatarURL      *string    `db:"avatar_url" json:"avatar_url"`
	Bio            *string    `db:"bio" json:"bio"`
	Visibility     Visibility `db:"profile_visibility" json:"profile_visibility"`
	FollowerCount  int        `db:"follower_count" json:"follower_count"`
	FollowingCount int        `db:"following_count" json:"following_count"`
	PostCount      int        `db:"post_count" json:"post_count"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// AllowFollowRequests reports whether a follow must be approved before it
// becomes accepted. Always derived from the visibility setting, never stored
// or set independently.
func (u *User) AllowFollowRequests() bool {
	return u.Visibility != VisibilityPublic
}

// RegisterRequest represents the data needed to register a new account.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents the data needed to log in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdatePrivacyRequest is the request body for PATCH /me/privacy.
type UpdatePrivacyRequest struct {
	ProfileVisibility string `json:"profile_visibility"`
}

// PrivacySettingsResponse echoes the current privacy state, including the
// derived follow-request flag.
type PrivacySettingsResponse struct {
	ProfileVisibility   Visibility `json:"profile_visibility"`
	AllowFollowRequests bool       `json:"allow_follow_requests"`
}

// UserSummary is the compact user representation used in lists.
type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	DisplayName *string `db:"display_name" json:"display_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
	IsFollowing bool    `json:"is_following"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidVisibility is returned when a privacy update names an unknown setting
	ErrInvalidVisibility = errors.New("invalid profile visibility")
)
