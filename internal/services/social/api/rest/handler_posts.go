package rest

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/openplaza/plaza/internal/services/social/storage"
)

type createPostRequest struct {
	Content   string `json:"content"`
	ImagePath string `json:"image_path"`
	Hashtags  string `json:"hashtags"`
}

type updatePostRequest struct {
	Content  *string `json:"content"`
	Hashtags *string `json:"hashtags"`
}

type postResponse struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	Content       string    `json:"content"`
	ImagePath     string    `json:"image_path,omitempty"`
	Hashtags      string    `json:"hashtags,omitempty"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type postPageResponse struct {
	Posts         []postResponse `json:"posts"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func toPostResponse(post storage.Post, likes, comments int) postResponse {
	return postResponse{
		ID:            post.ID,
		AuthorID:      post.AuthorID,
		Content:       post.Content,
		ImagePath:     post.ImagePath,
		Hashtags:      post.Hashtags,
		LikesCount:    likes,
		CommentsCount: comments,
		CreatedAt:     post.CreatedAt,
		UpdatedAt:     post.UpdatedAt,
	}
}

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request, _ string) {
	ctx := r.Context()
	pageSize, pageToken := pageParams(r)

	var (
		page storage.PostPage
		err  error
	)
	if authorID := r.URL.Query().Get("author_id"); authorID != "" {
		page, err = h.store.ListPostsByAuthor(ctx, authorID, pageSize, pageToken)
	} else {
		page, err = h.store.ListPosts(ctx, pageSize, pageToken)
	}
	if err != nil {
		h.internalError(w, "list posts", err)
		return
	}

	posts := make([]postResponse, 0, len(page.Posts))
	for _, post := range page.Posts {
		likes, err := h.store.CountPostLikes(ctx, post.ID)
		if err != nil {
			h.internalError(w, "count post likes", err)
			return
		}
		comments, err := h.store.CountCommentsByPost(ctx, post.ID)
		if err != nil {
			h.internalError(w, "count post comments", err)
			return
		}
		posts = append(posts, toPostResponse(post, likes, comments))
	}
	writeJSON(w, http.StatusOK, postPageResponse{Posts: posts, NextPageToken: page.NextPageToken})
}

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()

	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "post content is required")
		return
	}

	postID, err := h.newID()
	if err != nil {
		h.internalError(w, "generate post id", err)
		return
	}
	now := h.clock().UTC()
	post := storage.Post{
		ID:        postID,
		AuthorID:  callerID,
		Content:   req.Content,
		ImagePath: strings.TrimSpace(req.ImagePath),
		Hashtags:  strings.TrimSpace(req.Hashtags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.PutPost(ctx, post); err != nil {
		h.internalError(w, "create post", err)
		return
	}

	h.notify(ctx, "new post", func(ctx context.Context) error {
		_, err := h.engine.NotifyNewPost(ctx, callerID, postID)
		return err
	})

	followerIDs, err := h.store.ListFollowerIDs(ctx, callerID)
	if err != nil {
		log.Printf("list followers for eviction: %v", err)
		followerIDs = nil
	}
	h.invalidator.PostChanged(ctx, callerID, followerIDs)

	writeJSON(w, http.StatusCreated, toPostResponse(post, 0, 0))
}

func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request, _ string) {
	ctx := r.Context()
	postID := r.PathValue("postID")

	post, err := h.store.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.internalError(w, "get post", err)
		return
	}
	likes, err := h.store.CountPostLikes(ctx, postID)
	if err != nil {
		h.internalError(w, "count post likes", err)
		return
	}
	comments, err := h.store.CountCommentsByPost(ctx, postID)
	if err != nil {
		h.internalError(w, "count post comments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(post, likes, comments))
}

func (h *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	postID := r.PathValue("postID")

	post, err := h.store.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.internalError(w, "get post", err)
		return
	}
	if post.AuthorID != callerID {
		writeError(w, http.StatusForbidden, "you can only edit your own posts")
		return
	}

	var req updatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content != nil {
		post.Content = strings.TrimSpace(*req.Content)
		if post.Content == "" {
			writeError(w, http.StatusBadRequest, "post content is required")
			return
		}
	}
	if req.Hashtags != nil {
		post.Hashtags = strings.TrimSpace(*req.Hashtags)
	}
	post.UpdatedAt = h.clock().UTC()

	if err := h.store.PutPost(ctx, post); err != nil {
		h.internalError(w, "update post", err)
		return
	}

	followerIDs, err := h.store.ListFollowerIDs(ctx, callerID)
	if err != nil {
		log.Printf("list followers for eviction: %v", err)
		followerIDs = nil
	}
	h.invalidator.PostChanged(ctx, callerID, followerIDs)

	likes, err := h.store.CountPostLikes(ctx, postID)
	if err != nil {
		h.internalError(w, "count post likes", err)
		return
	}
	comments, err := h.store.CountCommentsByPost(ctx, postID)
	if err != nil {
		h.internalError(w, "count post comments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(post, likes, comments))
}

func (h *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	postID := r.PathValue("postID")

	post, err := h.store.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.internalError(w, "get post", err)
		return
	}
	if post.AuthorID != callerID {
		writeError(w, http.StatusForbidden, "you can only delete your own posts")
		return
	}
	if err := h.cascade.CascadeDeletePost(ctx, postID); err != nil {
		h.internalError(w, "delete post", err)
		return
	}
	writeMessage(w, http.StatusOK, "Post deleted successfully")
}

func (h *Handler) handleLikePost(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	postID := r.PathValue("postID")

	if _, err := h.store.GetPost(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.internalError(w, "get post", err)
		return
	}
	if err := h.store.AddPostLike(ctx, postID, callerID, h.clock().UTC()); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "post already liked")
			return
		}
		h.internalError(w, "like post", err)
		return
	}

	h.notify(ctx, "like post", func(ctx context.Context) error {
		_, err := h.engine.NotifyLikePost(ctx, callerID, postID)
		return err
	})

	writeMessage(w, http.StatusOK, "Post liked successfully")
}

func (h *Handler) handleUnlikePost(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	postID := r.PathValue("postID")

	if _, err := h.store.GetPost(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.internalError(w, "get post", err)
		return
	}
	if err := h.store.RemovePostLike(ctx, postID, callerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "post not liked")
			return
		}
		h.internalError(w, "unlike post", err)
		return
	}
	// Removing a like never retracts the notification it produced.

	writeMessage(w, http.StatusOK, "Post unliked successfully")
}
