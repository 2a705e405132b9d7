package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/openplaza/plaza/internal/services/social/storage"
)

type notificationResponse struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Kind      string    `json:"kind"`
	PostID    string    `json:"post_id,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type notificationPageResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextPageToken string                 `json:"next_page_token,omitempty"`
}

func toNotificationResponse(notification storage.Notification) notificationResponse {
	return notificationResponse{
		ID:        notification.ID,
		SenderID:  notification.SenderID,
		Kind:      notification.Kind,
		PostID:    notification.PostID,
		CommentID: notification.CommentID,
		IsRead:    notification.IsRead,
		CreatedAt: notification.CreatedAt,
	}
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request, callerID string) {
	pageSize, pageToken := pageParams(r)
	page, err := h.store.ListNotificationsByRecipient(r.Context(), callerID, pageSize, pageToken)
	if err != nil {
		h.internalError(w, "list notifications", err)
		return
	}
	notifications := make([]notificationResponse, 0, len(page.Notifications))
	for _, notification := range page.Notifications {
		notifications = append(notifications, toNotificationResponse(notification))
	}
	writeJSON(w, http.StatusOK, notificationPageResponse{
		Notifications: notifications,
		NextPageToken: page.NextPageToken,
	})
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request, callerID string) {
	count, err := h.store.CountUnreadByRecipient(r.Context(), callerID)
	if err != nil {
		h.internalError(w, "count unread notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request, callerID string) {
	ctx := r.Context()
	notificationID := r.PathValue("notificationID")

	notification, err := h.store.MarkNotificationRead(ctx, callerID, notificationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.internalError(w, "mark notification read", err)
		return
	}
	h.invalidator.NotificationChanged(ctx, callerID)

	writeJSON(w, http.StatusOK, toNotificationResponse(notification))
}
