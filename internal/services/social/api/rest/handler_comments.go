package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openplaza/plaza/internal/services/social/storage"
)

type createCommentRequest struct {
	Content string `json:"content"`
}

type commentResponse struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	LikesCount int       `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type commentPageResponse struct {
	Comments      []commentResponse `json:"comments"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

func toCommentResponse(comment storage.Comment, likes int) commentResponse {
	return commentResponse{
		ID:         comment.ID,
		PostID:     comment.PostID,
		AuthorID:   comment.AuthorID,
		Content:    comment.Content,
		LikesCount: likes,
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request, _ string) {
	ctx := r.Context()
	postID := r.PathValue("postID")
	pageSize, pageToken := pageParams(r)

	if _, err := h.store.GetPost(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.internalError(w, "get post", err)
		return
	}
	page, err := h.store.ListCommentsByPost(ctx, postID, pageSize, pageToken)
	if err != nil {
		h.internalError(w, "list comments", err)
		return
	}

	comments := make([]commentResponse, 0, len(page.Comments))
	for _, comment := range page.Comments {
		likes, err := h.store.CountCommentLikes(ctx, comment.ID)
		if err != nil {
			h.internalError(w, "count comment likes", err)
			return
		}
		comments = append(comments, toCommentResponse(comment, likes))
	}
	writeJSON(w, http.StatusOK, commentPageResponse{Comments: comments, NextPageToken: page.NextPageToken})
}

func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	postID := r.PathValue("postID")

	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "comment content is required")
		return
	}

	if _, err := h.store.GetPost(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.internalError(w, "get post", err)
		return
	}

	commentID, err := h.newID()
	if err != nil {
		h.internalError(w, "generate comment id", err)
		return
	}
	now := h.clock().UTC()
	comment := storage.Comment{
		ID:        commentID,
		PostID:    postID,
		AuthorID:  callerID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.PutComment(ctx, comment); err != nil {
		h.internalError(w, "create comment", err)
		return
	}

	h.notify(ctx, "comment", func(ctx context.Context) error {
		_, err := h.engine.NotifyComment(ctx, callerID, postID, commentID)
		return err
	})
	h.invalidator.CommentChanged(ctx, postID)

	writeJSON(w, http.StatusCreated, toCommentResponse(comment, 0))
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	commentID := r.PathValue("commentID")

	comment, err := h.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comment not found")
			return
		}
		h.internalError(w, "get comment", err)
		return
	}
	if comment.AuthorID != callerID {
		writeError(w, http.StatusForbidden, "you can only delete your own comments")
		return
	}
	if err := h.cascade.CascadeDeleteComment(ctx, commentID); err != nil {
		h.internalError(w, "delete comment", err)
		return
	}
	writeMessage(w, http.StatusOK, "Comment deleted successfully")
}

func (h *Handler) handleLikeComment(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	commentID := r.PathValue("commentID")

	if _, err := h.store.GetComment(ctx, commentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comment not found")
			return
		}
		h.internalError(w, "get comment", err)
		return
	}
	if err := h.store.AddCommentLike(ctx, commentID, callerID, h.clock().UTC()); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "comment already liked")
			return
		}
		h.internalError(w, "like comment", err)
		return
	}

	h.notify(ctx, "like comment", func(ctx context.Context) error {
		_, err := h.engine.NotifyLikeComment(ctx, callerID, commentID)
		return err
	})

	writeMessage(w, http.StatusOK, "Comment liked successfully")
}

func (h *Handler) handleUnlikeComment(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	commentID := r.PathValue("commentID")

	if _, err := h.store.GetComment(ctx, commentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comment not found")
			return
		}
		h.internalError(w, "get comment", err)
		return
	}
	if err := h.store.RemoveCommentLike(ctx, commentID, callerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "comment not liked")
			return
		}
		h.internalError(w, "unlike comment", err)
		return
	}
	writeMessage(w, http.StatusOK, "Comment unliked successfully")
}
