package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/openplaza/plaza/internal/services/social/storage"
)

// PutNotification inserts one notification row.
//
// The unique index on (recipient_id, dedupe_key) is the authoritative
// duplicate guard; a violation maps to storage.ErrConflict so callers can
// treat the insert as "already exists".
func (s *Store) PutNotification(ctx context.Context, notification storage.Notification) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	notification.ID = strings.TrimSpace(notification.ID)
	notification.RecipientID = strings.TrimSpace(notification.RecipientID)
	notification.SenderID = strings.TrimSpace(notification.SenderID)
	notification.Kind = strings.TrimSpace(notification.Kind)
	notification.DedupeKey = strings.TrimSpace(notification.DedupeKey)
	if notification.ID == "" {
		return fmt.Errorf("notification id is required")
	}
	if notification.RecipientID == "" {
		return fmt.Errorf("recipient id is required")
	}
	if notification.SenderID == "" {
		return fmt.Errorf("sender id is required")
	}
	if notification.Kind == "" {
		return fmt.Errorf("notification kind is required")
	}
	if notification.DedupeKey == "" {
		return fmt.Errorf("dedupe key is required")
	}
	if notification.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}

	isRead := 0
	if notification.IsRead {
		isRead = 1
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO notifications (id, recipient_id, sender_id, kind, post_id, comment_id, dedupe_key, is_read, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		notification.ID,
		notification.RecipientID,
		notification.SenderID,
		notification.Kind,
		strings.TrimSpace(notification.PostID),
		strings.TrimSpace(notification.CommentID),
		notification.DedupeKey,
		isRead,
		toMillis(notification.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

// GetNotificationByRecipientAndDedupeKey loads one notification by dedupe key.
func (s *Store) GetNotificationByRecipientAndDedupeKey(ctx context.Context, recipientID string, dedupeKey string) (storage.Notification, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Notification{}, err
	}
	recipientID = strings.TrimSpace(recipientID)
	dedupeKey = strings.TrimSpace(dedupeKey)
	if recipientID == "" {
		return storage.Notification{}, fmt.Errorf("recipient id is required")
	}
	if dedupeKey == "" {
		return storage.Notification{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, recipient_id, sender_id, kind, post_id, comment_id, dedupe_key, is_read, created_at
FROM notifications
WHERE recipient_id = ? AND dedupe_key = ?
`, recipientID, dedupeKey)
	record, err := scanNotificationRow(row.Scan)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Notification{}, storage.ErrNotFound
		}
		return storage.Notification{}, fmt.Errorf("get notification by dedupe key: %w", err)
	}
	return record, nil
}

// GetNotificationByRecipientAndID loads one recipient notification by id.
func (s *Store) GetNotificationByRecipientAndID(ctx context.Context, recipientID string, notificationID string) (storage.Notification, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Notification{}, err
	}
	recipientID = strings.TrimSpace(recipientID)
	notificationID = strings.TrimSpace(notificationID)
	if recipientID == "" || notificationID == "" {
		return storage.Notification{}, fmt.Errorf("recipient id and notification id are required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, recipient_id, sender_id, kind, post_id, comment_id, dedupe_key, is_read, created_at
FROM notifications
WHERE recipient_id = ? AND id = ?
`, recipientID, notificationID)
	record, err := scanNotificationRow(row.Scan)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Notification{}, storage.ErrNotFound
		}
		return storage.Notification{}, fmt.Errorf("get notification by id: %w", err)
	}
	return record, nil
}

// ListNotificationsByRecipient lists one recipient inbox newest-first with
// cursor pagination.
func (s *Store) ListNotificationsByRecipient(ctx context.Context, recipientID string, pageSize int, pageToken string) (storage.NotificationPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.NotificationPage{}, err
	}
	recipientID = strings.TrimSpace(recipientID)
	pageToken = strings.TrimSpace(pageToken)
	if recipientID == "" {
		return storage.NotificationPage{}, fmt.Errorf("recipient id is required")
	}
	if pageSize <= 0 {
		return storage.NotificationPage{}, fmt.Errorf("page size must be greater than zero")
	}

	var cursorCreatedAt int64
	if pageToken != "" {
		row := s.sqlDB.QueryRowContext(ctx, `
SELECT created_at FROM notifications WHERE recipient_id = ? AND id = ?
`, recipientID, pageToken)
		if err := row.Scan(&cursorCreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.NotificationPage{}, nil
			}
			return storage.NotificationPage{}, fmt.Errorf("lookup notification cursor: %w", err)
		}
	}

	query := `
SELECT id, recipient_id, sender_id, kind, post_id, comment_id, dedupe_key, is_read, created_at
FROM notifications
WHERE recipient_id = ?`
	args := []any{recipientID}
	if pageToken != "" {
		query += "\n  AND (created_at < ? OR (created_at = ? AND id < ?))"
		args = append(args, cursorCreatedAt, cursorCreatedAt, pageToken)
	}
	query += "\nORDER BY created_at DESC, id DESC\nLIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.NotificationPage{}, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	page := storage.NotificationPage{Notifications: make([]storage.Notification, 0, pageSize)}
	for rows.Next() {
		record, scanErr := scanNotificationRow(rows.Scan)
		if scanErr != nil {
			return storage.NotificationPage{}, fmt.Errorf("scan notification row: %w", scanErr)
		}
		page.Notifications = append(page.Notifications, record)
	}
	if err := rows.Err(); err != nil {
		return storage.NotificationPage{}, fmt.Errorf("iterate notification rows: %w", err)
	}
	if len(page.Notifications) > pageSize {
		page.NextPageToken = page.Notifications[pageSize-1].ID
		page.Notifications = page.Notifications[:pageSize]
	}
	return page, nil
}

// CountUnreadByRecipient returns the unread inbox count for one recipient.
func (s *Store) CountUnreadByRecipient(ctx context.Context, recipientID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return 0, fmt.Errorf("recipient id is required")
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM notifications WHERE recipient_id = ? AND is_read = 0
`, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks one notification as read for a recipient.
func (s *Store) MarkNotificationRead(ctx context.Context, recipientID string, notificationID string) (storage.Notification, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Notification{}, err
	}
	recipientID = strings.TrimSpace(recipientID)
	notificationID = strings.TrimSpace(notificationID)
	if recipientID == "" {
		return storage.Notification{}, fmt.Errorf("recipient id is required")
	}
	if notificationID == "" {
		return storage.Notification{}, fmt.Errorf("notification id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE notifications
SET is_read = 1
WHERE recipient_id = ? AND id = ?
`, recipientID, notificationID)
	if err != nil {
		return storage.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Notification{}, fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.Notification{}, storage.ErrNotFound
	}
	return s.GetNotificationByRecipientAndID(ctx, recipientID, notificationID)
}

// DeleteNotificationsByPost removes all notifications referencing one post.
func (s *Store) DeleteNotificationsByPost(ctx context.Context, postID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return fmt.Errorf("post id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM notifications WHERE post_id = ?
`, postID); err != nil {
		return fmt.Errorf("delete notifications by post: %w", err)
	}
	return nil
}

// DeleteNotificationsByComment removes all notifications referencing one comment.
func (s *Store) DeleteNotificationsByComment(ctx context.Context, commentID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return fmt.Errorf("comment id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM notifications WHERE comment_id = ?
`, commentID); err != nil {
		return fmt.Errorf("delete notifications by comment: %w", err)
	}
	return nil
}

// DeleteNotificationsByUser removes all notifications where the user is
// sender or recipient.
func (s *Store) DeleteNotificationsByUser(ctx context.Context, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM notifications WHERE recipient_id = ? OR sender_id = ?
`, userID, userID); err != nil {
		return fmt.Errorf("delete notifications by user: %w", err)
	}
	return nil
}

func scanNotificationRow(scan scanner) (storage.Notification, error) {
	var record storage.Notification
	var isRead int
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.RecipientID,
		&record.SenderID,
		&record.Kind,
		&record.PostID,
		&record.CommentID,
		&record.DedupeKey,
		&isRead,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Notification{}, storage.ErrNotFound
		}
		return storage.Notification{}, err
	}
	record.IsRead = isRead != 0
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
