// Package rest exposes the social service over a JSON HTTP API.
//
// Handlers perform the primary mutation first, then hand the event to the
// notification rule engine and evict cache keys. Engine failures are logged
// and never fail the request that triggered them; deletions go through the
// cascade engine, which is the primary operation for those endpoints.
package rest

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openplaza/plaza/internal/platform/id"
	"github.com/openplaza/plaza/internal/services/social/cache"
	"github.com/openplaza/plaza/internal/services/social/domain"
	"github.com/openplaza/plaza/internal/services/social/media"
	"github.com/openplaza/plaza/internal/services/social/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxSearchLimit  = 25
)

// Store is the persistence surface the HTTP handlers read and write.
type Store interface {
	storage.UserStore
	storage.ProfileStore
	storage.FollowStore
	storage.PostStore
	storage.CommentStore
	storage.NotificationStore
}

// Handler serves the social JSON API.
type Handler struct {
	store       Store
	engine      *domain.Engine
	cascade     *domain.Cascade
	invalidator *cache.Invalidator
	media       media.Remover
	auth        *Authenticator
	clock       func() time.Time
	newID       func() (string, error)
}

// Config carries the collaborators a Handler needs.
type Config struct {
	Store       Store
	Engine      *domain.Engine
	Cascade     *domain.Cascade
	Invalidator *cache.Invalidator
	Media       media.Remover
	Auth        *Authenticator
	Clock       func() time.Time
	NewID       func() (string, error)
}

// NewHandler constructs the API handler and registers its routes.
func NewHandler(cfg Config) http.Handler {
	h := &Handler{
		store:       cfg.Store,
		engine:      cfg.Engine,
		cascade:     cfg.Cascade,
		invalidator: cfg.Invalidator,
		media:       cfg.Media,
		auth:        cfg.Auth,
		clock:       cfg.Clock,
		newID:       cfg.NewID,
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	if h.newID == nil {
		h.newID = id.NewID
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.HandleFunc("POST /api/users", h.handleCreateUser)
	mux.HandleFunc("DELETE /api/users/{userID}", h.requireUser(h.handleDeleteUser))
	mux.HandleFunc("POST /api/users/{userID}/follow", h.requireUser(h.handleFollow))
	mux.HandleFunc("DELETE /api/users/{userID}/follow", h.requireUser(h.handleUnfollow))

	mux.HandleFunc("GET /api/profiles/{userID}", h.requireUser(h.handleGetProfile))
	mux.HandleFunc("PUT /api/profiles/{userID}", h.requireUser(h.handleUpdateProfile))

	mux.HandleFunc("GET /api/posts", h.requireUser(h.handleListPosts))
	mux.HandleFunc("POST /api/posts", h.requireUser(h.handleCreatePost))
	mux.HandleFunc("GET /api/posts/{postID}", h.requireUser(h.handleGetPost))
	mux.HandleFunc("PUT /api/posts/{postID}", h.requireUser(h.handleUpdatePost))
	mux.HandleFunc("DELETE /api/posts/{postID}", h.requireUser(h.handleDeletePost))
	mux.HandleFunc("POST /api/posts/{postID}/like", h.requireUser(h.handleLikePost))
	mux.HandleFunc("DELETE /api/posts/{postID}/like", h.requireUser(h.handleUnlikePost))

	mux.HandleFunc("GET /api/posts/{postID}/comments", h.requireUser(h.handleListComments))
	mux.HandleFunc("POST /api/posts/{postID}/comments", h.requireUser(h.handleCreateComment))
	mux.HandleFunc("DELETE /api/comments/{commentID}", h.requireUser(h.handleDeleteComment))
	mux.HandleFunc("POST /api/comments/{commentID}/like", h.requireUser(h.handleLikeComment))
	mux.HandleFunc("DELETE /api/comments/{commentID}/like", h.requireUser(h.handleUnlikeComment))

	mux.HandleFunc("GET /api/notifications", h.requireUser(h.handleListNotifications))
	mux.HandleFunc("GET /api/notifications/unread_count", h.requireUser(h.handleUnreadCount))
	mux.HandleFunc("POST /api/notifications/{notificationID}/read", h.requireUser(h.handleMarkNotificationRead))

	mux.HandleFunc("GET /api/search/users", h.requireUser(h.handleSearchUsers))

	return mux
}

type authedHandler func(w http.ResponseWriter, r *http.Request, callerID string)

func (h *Handler) requireUser(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := h.auth.UserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, callerID)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(user storage.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "username and email are required")
		return
	}

	userID, err := h.newID()
	if err != nil {
		h.internalError(w, "generate user id", err)
		return
	}
	now := h.clock().UTC()
	user := storage.User{
		ID:        userID,
		Username:  req.Username,
		Email:     req.Email,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	profile := storage.Profile{
		UserID:      userID,
		Bio:         strings.TrimSpace(req.Bio),
		PicturePath: media.DefaultProfilePicture,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateUserWithProfile(r.Context(), user, profile); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "username or email already taken")
			return
		}
		h.internalError(w, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request, callerID string) {
	userID := r.PathValue("userID")
	if userID != callerID {
		writeError(w, http.StatusForbidden, "you can only delete your own account")
		return
	}
	if _, err := h.store.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.internalError(w, "get user", err)
		return
	}
	if err := h.cascade.CascadeDeleteUser(r.Context(), userID); err != nil {
		h.internalError(w, "delete user", err)
		return
	}
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}

type profileResponse struct {
	User           userResponse `json:"user"`
	Bio            string       `json:"bio"`
	PicturePath    string       `json:"picture_path"`
	FollowersCount int          `json:"followers_count"`
	FollowingCount int          `json:"following_count"`
	IsFollowing    bool         `json:"is_following"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	userID := r.PathValue("userID")

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.internalError(w, "get user", err)
		return
	}
	profile, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.internalError(w, "get profile", err)
		return
	}
	followers, err := h.store.CountFollowers(ctx, userID)
	if err != nil {
		h.internalError(w, "count followers", err)
		return
	}
	following, err := h.store.CountFollowing(ctx, userID)
	if err != nil {
		h.internalError(w, "count following", err)
		return
	}
	isFollowing := false
	if callerID != userID {
		isFollowing, err = h.store.IsFollower(ctx, userID, callerID)
		if err != nil {
			h.internalError(w, "check follow edge", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, profileResponse{
		User:           toUserResponse(user),
		Bio:            profile.Bio,
		PicturePath:    profile.PicturePath,
		FollowersCount: followers,
		FollowingCount: following,
		IsFollowing:    isFollowing,
		UpdatedAt:      profile.UpdatedAt,
	})
}

type updateProfileRequest struct {
	Bio         *string `json:"bio"`
	PicturePath *string `json:"picture_path"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	userID := r.PathValue("userID")
	if userID != callerID {
		writeError(w, http.StatusForbidden, "you can only edit your own profile")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.internalError(w, "get profile", err)
		return
	}

	previousPicture := profile.PicturePath
	if req.Bio != nil {
		profile.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.PicturePath != nil {
		profile.PicturePath = strings.TrimSpace(*req.PicturePath)
	}
	profile.UpdatedAt = h.clock().UTC()

	if err := h.store.PutProfile(ctx, profile); err != nil {
		h.internalError(w, "update profile", err)
		return
	}

	// A replaced picture leaves an orphaned file behind; remove it unless
	// it is the shared placeholder.
	if req.PicturePath != nil && previousPicture != profile.PicturePath &&
		!media.IsDefaultProfilePicture(previousPicture) {
		media.RemoveBestEffort(h.media, previousPicture)
	}

	writeJSON(w, http.StatusOK, profileResponse{
		User:        userResponse{ID: userID},
		Bio:         profile.Bio,
		PicturePath: profile.PicturePath,
		UpdatedAt:   profile.UpdatedAt,
	})
}

func (h *Handler) handleFollow(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	targetID := r.PathValue("userID")
	if targetID == callerID {
		writeError(w, http.StatusBadRequest, "you cannot follow yourself")
		return
	}
	if _, err := h.store.GetUser(ctx, targetID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.internalError(w, "get user", err)
		return
	}
	if err := h.store.AddFollower(ctx, targetID, callerID, h.clock().UTC()); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "already following this user")
			return
		}
		h.internalError(w, "add follower", err)
		return
	}

	h.notify(ctx, "follow", func(ctx context.Context) error {
		_, err := h.engine.NotifyFollow(ctx, callerID, targetID)
		return err
	})

	writeMessage(w, http.StatusOK, "User followed successfully")
}

func (h *Handler) handleUnfollow(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	targetID := r.PathValue("userID")
	if _, err := h.store.GetUser(ctx, targetID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.internalError(w, "get user", err)
		return
	}
	if err := h.store.RemoveFollower(ctx, targetID, callerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "not following this user")
			return
		}
		h.internalError(w, "remove follower", err)
		return
	}
	// Unfollowing retracts the edge only; the follow notification stays.
	writeMessage(w, http.StatusOK, "User unfollowed successfully")
}

func (h *Handler) handleSearchUsers(w http.ResponseWriter, r *http.Request, callerID string) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusOK, map[string]any{"users": []userResponse{}})
		return
	}
	users, err := h.store.SearchUsers(r.Context(), query, callerID, maxSearchLimit)
	if err != nil {
		h.internalError(w, "search users", err)
		return
	}
	results := make([]userResponse, 0, len(users))
	for _, user := range users {
		results = append(results, toUserResponse(user))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": results})
}

// notify runs a rule engine call after the primary mutation. Failures are
// logged and never surfaced to the client.
func (h *Handler) notify(ctx context.Context, event string, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Printf("notification rule %s: %v", event, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, operation string, err error) {
	log.Printf("%s: %v", operation, err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func pageParams(r *http.Request) (int, string) {
	pageSize := defaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageSize = min(parsed, maxPageSize)
		}
	}
	return pageSize, r.URL.Query().Get("page_token")
}
