package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openplaza/plaza/internal/services/social/storage"
)

// PutComment upserts one comment row.
func (s *Store) PutComment(ctx context.Context, comment storage.Comment) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	comment.ID = strings.TrimSpace(comment.ID)
	comment.PostID = strings.TrimSpace(comment.PostID)
	comment.AuthorID = strings.TrimSpace(comment.AuthorID)
	if comment.ID == "" {
		return fmt.Errorf("comment id is required")
	}
	if comment.PostID == "" {
		return fmt.Errorf("post id is required")
	}
	if comment.AuthorID == "" {
		return fmt.Errorf("author id is required")
	}
	if strings.TrimSpace(comment.Content) == "" {
		return fmt.Errorf("comment content is required")
	}
	if comment.CreatedAt.IsZero() || comment.UpdatedAt.IsZero() {
		return fmt.Errorf("comment timestamps are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO comments (id, post_id, author_id, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	updated_at = excluded.updated_at
`, comment.ID, comment.PostID, comment.AuthorID, comment.Content, toMillis(comment.CreatedAt), toMillis(comment.UpdatedAt))
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("put comment: %w", err)
	}
	return nil
}

// GetComment loads one comment by id.
func (s *Store) GetComment(ctx context.Context, commentID string) (storage.Comment, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Comment{}, err
	}
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return storage.Comment{}, fmt.Errorf("comment id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, post_id, author_id, content, created_at, updated_at
FROM comments
WHERE id = ?
`, commentID)
	return scanCommentRow(row.Scan)
}

// DeleteComment removes one comment row; like edges cascade.
func (s *Store) DeleteComment(ctx context.Context, commentID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return fmt.Errorf("comment id is required")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListCommentsByPost lists one post's comments oldest-first with cursor
// pagination.
func (s *Store) ListCommentsByPost(ctx context.Context, postID string, pageSize int, pageToken string) (storage.CommentPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.CommentPage{}, err
	}
	postID = strings.TrimSpace(postID)
	pageToken = strings.TrimSpace(pageToken)
	if postID == "" {
		return storage.CommentPage{}, fmt.Errorf("post id is required")
	}
	if pageSize <= 0 {
		return storage.CommentPage{}, fmt.Errorf("page size must be greater than zero")
	}

	var cursorCreatedAt int64
	if pageToken != "" {
		row := s.sqlDB.QueryRowContext(ctx, `SELECT created_at FROM comments WHERE id = ?`, pageToken)
		if err := row.Scan(&cursorCreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.CommentPage{}, nil
			}
			return storage.CommentPage{}, fmt.Errorf("lookup comment cursor: %w", err)
		}
	}

	query := `
SELECT id, post_id, author_id, content, created_at, updated_at
FROM comments
WHERE post_id = ?`
	args := []any{postID}
	if pageToken != "" {
		query += "\n  AND (created_at > ? OR (created_at = ? AND id > ?))"
		args = append(args, cursorCreatedAt, cursorCreatedAt, pageToken)
	}
	query += "\nORDER BY created_at ASC, id ASC\nLIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.CommentPage{}, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	page := storage.CommentPage{Comments: make([]storage.Comment, 0, pageSize)}
	for rows.Next() {
		comment, scanErr := scanCommentRow(rows.Scan)
		if scanErr != nil {
			return storage.CommentPage{}, fmt.Errorf("scan comment row: %w", scanErr)
		}
		page.Comments = append(page.Comments, comment)
	}
	if err := rows.Err(); err != nil {
		return storage.CommentPage{}, fmt.Errorf("iterate comment rows: %w", err)
	}
	if len(page.Comments) > pageSize {
		page.NextPageToken = page.Comments[pageSize-1].ID
		page.Comments = page.Comments[:pageSize]
	}
	return page, nil
}

// ListCommentIDsByPost lists all comment ids attached to one post.
func (s *Store) ListCommentIDsByPost(ctx context.Context, postID string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, fmt.Errorf("post id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id FROM comments WHERE post_id = ? ORDER BY created_at ASC, id ASC
`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comment ids: %w", err)
	}
	defer rows.Close()

	var commentIDs []string
	for rows.Next() {
		var commentID string
		if err := rows.Scan(&commentID); err != nil {
			return nil, fmt.Errorf("scan comment id row: %w", err)
		}
		commentIDs = append(commentIDs, commentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment id rows: %w", err)
	}
	return commentIDs, nil
}

// CountCommentsByPost returns the comment count for one post.
func (s *Store) CountCommentsByPost(ctx context.Context, postID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM comments WHERE post_id = ?
`, strings.TrimSpace(postID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

// AddCommentLike records one comment-like edge.
func (s *Store) AddCommentLike(ctx context.Context, commentID string, userID string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	commentID = strings.TrimSpace(commentID)
	userID = strings.TrimSpace(userID)
	if commentID == "" || userID == "" {
		return fmt.Errorf("comment id and user id are required")
	}
	if at.IsZero() {
		return fmt.Errorf("like time is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO comment_likes (comment_id, user_id, created_at)
VALUES (?, ?, ?)
`, commentID, userID, toMillis(at))
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("add comment like: %w", err)
	}
	return nil
}

// RemoveCommentLike deletes one comment-like edge.
func (s *Store) RemoveCommentLike(ctx context.Context, commentID string, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM comment_likes WHERE comment_id = ? AND user_id = ?
`, strings.TrimSpace(commentID), strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("remove comment like: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove comment like rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountCommentLikes returns the like count for one comment.
func (s *Store) CountCommentLikes(ctx context.Context, commentID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM comment_likes WHERE comment_id = ?
`, strings.TrimSpace(commentID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comment likes: %w", err)
	}
	return count, nil
}

func scanCommentRow(scan scanner) (storage.Comment, error) {
	var comment storage.Comment
	var createdAt, updatedAt int64
	if err := scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Content, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Comment{}, storage.ErrNotFound
		}
		return storage.Comment{}, err
	}
	comment.CreatedAt = fromMillis(createdAt)
	comment.UpdatedAt = fromMillis(updatedAt)
	return comment, nil
}
