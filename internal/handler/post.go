package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"socialite/internal/httputil"
	"socialite/internal/model"
	"socialite/internal/service"
	"socialite/internal/transport/http/middleware"
)

type PostHandler struct {
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// Create publishes a new post.
// POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.postService.Create(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEmptyPost):
			httputil.WriteBadRequest(w, "Post text is required")
		case errors.Is(err, model.ErrPostTooLong):
			httputil.WriteBadRequest(w, "Post text too long")
		default:
			log.Printf("[ERROR] Create post handler: %v", err)
			httputil.WriteInternalError(w, "Failed to create post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// Delete removes the caller's own post.
// DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	if err := h.postService.Delete(r.Context(), postID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			log.Printf("[ERROR] Delete post handler: %v", err)
			httputil.WriteInternalError(w, "Failed to delete post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Post deleted",
	})
}

// GetByID returns one post, gated by the author's visibility.
// GET /posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	viewerID := middleware.GetViewerID(r.Context())

	post, err := h.postService.GetByID(r.Context(), postID, viewerID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrContentHidden):
			httputil.WriteForbidden(w, "This account's posts are only visible to approved followers")
		default:
			log.Printf("[ERROR] GetByID post handler: %v", err)
			httputil.WriteInternalError(w, "Failed to get post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// GetUserPosts lists a user's posts as seen by the current viewer.
// GET /users/{id}/posts
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.postService.GetUserPosts(r.Context(), userID, viewerID, cursor, limit)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		case errors.Is(err, model.ErrContentHidden):
			httputil.WriteForbidden(w, "This account's posts are only visible to approved followers")
		default:
			log.Printf("[ERROR] GetUserPosts handler: %v", err)
			httputil.WriteInternalError(w, "Failed to get posts")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
