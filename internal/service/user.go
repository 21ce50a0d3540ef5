package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"socialite/internal/model"
	"socialite/internal/policy"
	"socialite/internal/repository"
)

// UserService handles account business logic and profile assembly.
type UserService struct {
	repo       repository.UserRepository
	followRepo repository.FollowRepository
}

func NewUserService(repo repository.UserRepository, followRepo repository.FollowRepository) *UserService {
	return &UserService{
		repo:       repo,
		followRepo: followRepo,
	}
}

// Register creates a new account. New accounts start with public visibility.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, fmt.Errorf("username is required")
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("password is required")
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		PasswordHashed: string(hashedPassword),
		Visibility:     model.VisibilityPublic,
	}
	if req.DisplayName != "" {
		user.DisplayName = &req.DisplayName
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user with username and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Don't reveal whether the username exists.
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile assembles the profile view for one viewer: the account's
// public fields, the policy decision on whether this viewer may see the
// account's content, and what the follow control should show.
//
// The viewer identity is always an explicit parameter. A nil viewerID means
// an unauthenticated visitor; the policy then runs with no ownership and no
// relationship.
func (s *UserService) GetProfile(ctx context.Context, userID int64, viewerID *int64) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	isOwner := viewerID != nil && *viewerID == userID

	status := policy.StatusAbsent
	if viewerID != nil && !isOwner {
		status, err = s.followRepo.GetStatus(ctx, *viewerID, userID)
		if err != nil {
			return nil, err
		}
	}

	decision := policy.Evaluate(user.Visibility, isOwner, status == model.FollowStatusAccepted)

	return &model.ProfileResponse{
		User:             model.NewPublicProfile(user),
		CanViewContent:   decision.CanViewContent,
		RequiresApproval: decision.RequiresApproval,
		FollowState:      followButtonState(viewerID, isOwner, status),
	}, nil
}

// followButtonState maps the relationship to the control shown on the
// profile. Declined shows a plain follow button again: the requester may
// re-request.
func followButtonState(viewerID *int64, isOwner bool, status model.FollowStatus) model.FollowButtonState {
	if viewerID == nil || isOwner {
		return model.FollowButtonNone
	}
	switch status {
	case model.FollowStatusAccepted:
		return model.FollowButtonFollowing
	case model.FollowStatusPending:
		return model.FollowButtonPending
	default:
		return model.FollowButtonFollow
	}
}

// UpdateVisibility changes the account's profile visibility. The
// allow-follow-requests flag is derived from visibility and therefore
// changes with it; there is no way to set it on its own.
//
// Existing relationships are left alone: tightening visibility does not
// revoke accepted followers, it only gates future follows and content
// reads (which always use the current setting).
func (s *UserService) UpdateVisibility(ctx context.Context, userID int64, rawVisibility string) (*model.PrivacySettingsResponse, error) {
	v := model.Visibility(rawVisibility)
	if !v.Valid() {
		return nil, model.ErrInvalidVisibility
	}

	if err := s.repo.UpdateVisibility(ctx, userID, v); err != nil {
		return nil, err
	}

	u := &model.User{Visibility: v}
	return &model.PrivacySettingsResponse{
		ProfileVisibility:   v,
		AllowFollowRequests: u.AllowFollowRequests(),
	}, nil
}

// GetPrivacySettings returns the current privacy state.
func (s *UserService) GetPrivacySettings(ctx context.Context, userID int64) (*model.PrivacySettingsResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.PrivacySettingsResponse{
		ProfileVisibility:   user.Visibility,
		AllowFollowRequests: user.AllowFollowRequests(),
	}, nil
}

// Search finds users by username prefix, enriched with whether the viewer
// has an accepted follow of each result. One batch query, no N+1.
func (s *UserService) Search(ctx context.Context, query string, limit int, viewerID *int64) ([]model.UserSummary, error) {
	users, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil && len(users) > 0 {
		userIDs := make([]int64, len(users))
		for i, user := range users {
			userIDs[i] = user.ID
		}

		followMap, err := s.followRepo.CheckAccepted(ctx, *viewerID, userIDs)
		if err == nil {
			for i := range users {
				users[i].IsFollowing = followMap[users[i].ID]
			}
		}
	}

	return users, nil
}
