package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"socialite/internal/httputil"
	"socialite/internal/model"
	"socialite/internal/service"
	"socialite/internal/transport/http/middleware"
)

type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
	}
}

// Follow creates or re-requests a follow edge.
// POST /users/{id}/follow
//
// The response always reports the resulting state, so a repeated follow
// returns 200 with "already_accepted"/"already_pending" rather than an error.
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	result, err := h.followService.Follow(r.Context(), followerID, followeeID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Follow handler: %v", err)
			httputil.WriteInternalError(w, "Failed to follow user")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Unfollow removes a follow edge or cancels a pending request.
// DELETE /users/{id}/follow
//
// Unfollowing someone you don't follow succeeds: the end state is the same.
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.Unfollow(r.Context(), followerID, followeeID); err != nil {
		log.Printf("[ERROR] Unfollow handler: %v", err)
		httputil.WriteInternalError(w, "Failed to unfollow user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully unfollowed user",
	})
}

// Approve accepts a pending follow request addressed to the caller.
// POST /me/follow-requests/{id}/approve
func (h *FollowHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	requesterID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.Approve(r.Context(), ownerID, requesterID); err != nil {
		switch {
		case errors.Is(err, model.ErrNoPendingRequest):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Approve handler: %v", err)
			httputil.WriteInternalError(w, "Failed to approve follow request")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follow request approved",
	})
}

// Decline rejects a pending follow request addressed to the caller.
// POST /me/follow-requests/{id}/decline
func (h *FollowHandler) Decline(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	requesterID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.Decline(r.Context(), ownerID, requesterID); err != nil {
		switch {
		case errors.Is(err, model.ErrNoPendingRequest):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Decline handler: %v", err)
			httputil.WriteInternalError(w, "Failed to decline follow request")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follow request declined",
	})
}

// GetPendingRequests lists the caller's incoming follow requests.
// GET /me/follow-requests
func (h *FollowHandler) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}

	result, err := h.followService.GetPendingRequests(r.Context(), userID, limit)
	if err != nil {
		log.Printf("[ERROR] GetPendingRequests handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get follow requests")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetFollowers lists accepted followers of a user.
// GET /users/{id}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, ok := parseTimeCursor(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}

	viewerID := middleware.GetViewerID(r.Context())

	result, err := h.followService.GetFollowers(r.Context(), userID, cursor, limit, viewerID)
	if err != nil {
		log.Printf("[ERROR] GetFollowers handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get followers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetFollowing lists users a user has an accepted follow of.
// GET /users/{id}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, ok := parseTimeCursor(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}

	viewerID := middleware.GetViewerID(r.Context())

	result, err := h.followService.GetFollowing(r.Context(), userID, cursor, limit, viewerID)
	if err != nil {
		log.Printf("[ERROR] GetFollowing handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get following")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// parseTimeCursor reads the cursor query param as RFC3339. Writes a 400 and
// returns ok=false on a malformed cursor.
func parseTimeCursor(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	cursorStr := r.URL.Query().Get("cursor")
	if cursorStr == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339Nano, cursorStr)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid cursor format")
		return nil, false
	}
	return &parsed, true
}

// parseLimit reads the limit query param, bounded to 1..100.
func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def, true
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed < 1 || parsed > 100 {
		httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
		return 0, false
	}
	return parsed, true
}
