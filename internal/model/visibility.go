package model

// Visibility controls who can see an account's profile content.
type Visibility string

const (
	// VisibilityPublic: anyone can view content, follows are instant.
	VisibilityPublic Visibility = "public"

	// VisibilityFollowers: only accepted followers can view content,
	// follows require approval.
	VisibilityFollowers Visibility = "followers"

	// VisibilityPrivate: only the owner and accepted followers can view
	// content, follows require approval.
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility maps a raw string to a Visibility. Unknown or empty
// values fall back to public; a missing setting is not an error.
func ParseVisibility(s string) Visibility {
	switch Visibility(s) {
	case VisibilityFollowers:
		return VisibilityFollowers
	case VisibilityPrivate:
		return VisibilityPrivate
	default:
		return VisibilityPublic
	}
}

// Valid reports whether v is one of the three known settings.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return true
	}
	return false
}
