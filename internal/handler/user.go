package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"socialite/internal/httputil"
	"socialite/internal/model"
	"socialite/internal/service"
	"socialite/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile returns a user's profile as seen by the current viewer.
// GET /users/{id}
//
// The route sits behind optional auth: the viewer is taken from the request
// context when present and is nil for anonymous visitors. Hidden profiles
// still return 200 with the public fields and can_view_content=false; the
// profile's existence is not a secret, its content is.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	viewerID := middleware.GetViewerID(r.Context())

	profile, err := h.userService.GetProfile(r.Context(), userID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] GetProfile handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// Search finds users by username prefix.
// GET /users/search?q=...
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.WriteBadRequest(w, "Search query is required")
		return
	}

	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}

	viewerID := middleware.GetViewerID(r.Context())

	results, err := h.userService.Search(r.Context(), query, limit, viewerID)
	if err != nil {
		log.Printf("[ERROR] Search handler: %v", err)
		httputil.WriteInternalError(w, "Failed to search users")
		return
	}

	if results == nil {
		results = []model.UserSummary{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": results,
	})
}

// GetPrivacySettings returns the caller's privacy settings.
// GET /me/privacy
func (h *UserHandler) GetPrivacySettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	settings, err := h.userService.GetPrivacySettings(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] GetPrivacySettings handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get privacy settings")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, settings)
}

// UpdatePrivacySettings changes the caller's profile visibility.
// PATCH /me/privacy
func (h *UserHandler) UpdatePrivacySettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.UpdatePrivacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	settings, err := h.userService.UpdateVisibility(r.Context(), userID, req.ProfileVisibility)
	if err != nil {
		if errors.Is(err, model.ErrInvalidVisibility) {
			httputil.WriteBadRequest(w, "profile_visibility must be one of: public, followers, private")
			return
		}
		log.Printf("[ERROR] UpdatePrivacySettings handler: %v", err)
		httputil.WriteInternalError(w, "Failed to update privacy settings")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, settings)
}
