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

// PutPost upserts one post row.
func (s *Store) PutPost(ctx context.Context, post storage.Post) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	post.ID = strings.TrimSpace(post.ID)
	post.AuthorID = strings.TrimSpace(post.AuthorID)
	if post.ID == "" {
		return fmt.Errorf("post id is required")
	}
	if post.AuthorID == "" {
		return fmt.Errorf("author id is required")
	}
	if strings.TrimSpace(post.Content) == "" {
		return fmt.Errorf("post content is required")
	}
	if post.CreatedAt.IsZero() || post.UpdatedAt.IsZero() {
		return fmt.Errorf("post timestamps are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO posts (id, author_id, content, image_path, hashtags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	image_path = excluded.image_path,
	hashtags = excluded.hashtags,
	updated_at = excluded.updated_at
`, post.ID, post.AuthorID, post.Content, post.ImagePath, post.Hashtags, toMillis(post.CreatedAt), toMillis(post.UpdatedAt))
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("put post: %w", err)
	}
	return nil
}

// GetPost loads one post by id.
func (s *Store) GetPost(ctx context.Context, postID string) (storage.Post, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Post{}, err
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return storage.Post{}, fmt.Errorf("post id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, author_id, content, image_path, hashtags, created_at, updated_at
FROM posts
WHERE id = ?
`, postID)
	return scanPostRow(row.Scan)
}

// DeletePost removes one post row; comments and like edges cascade.
func (s *Store) DeletePost(ctx context.Context, postID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return fmt.Errorf("post id is required")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListPosts lists all posts newest-first with cursor pagination.
func (s *Store) ListPosts(ctx context.Context, pageSize int, pageToken string) (storage.PostPage, error) {
	return s.listPosts(ctx, "", pageSize, pageToken)
}

// ListPostsByAuthor lists one author's posts newest-first with cursor pagination.
func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string, pageSize int, pageToken string) (storage.PostPage, error) {
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return storage.PostPage{}, fmt.Errorf("author id is required")
	}
	return s.listPosts(ctx, authorID, pageSize, pageToken)
}

func (s *Store) listPosts(ctx context.Context, authorID string, pageSize int, pageToken string) (storage.PostPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PostPage{}, err
	}
	if pageSize <= 0 {
		return storage.PostPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	var cursorCreatedAt int64
	if pageToken != "" {
		row := s.sqlDB.QueryRowContext(ctx, `SELECT created_at FROM posts WHERE id = ?`, pageToken)
		if err := row.Scan(&cursorCreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.PostPage{}, nil
			}
			return storage.PostPage{}, fmt.Errorf("lookup post cursor: %w", err)
		}
	}

	query := `
SELECT id, author_id, content, image_path, hashtags, created_at, updated_at
FROM posts
WHERE 1 = 1`
	args := make([]any, 0, 5)
	if authorID != "" {
		query += "\n  AND author_id = ?"
		args = append(args, authorID)
	}
	if pageToken != "" {
		query += "\n  AND (created_at < ? OR (created_at = ? AND id < ?))"
		args = append(args, cursorCreatedAt, cursorCreatedAt, pageToken)
	}
	query += "\nORDER BY created_at DESC, id DESC\nLIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.PostPage{}, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	page := storage.PostPage{Posts: make([]storage.Post, 0, pageSize)}
	for rows.Next() {
		post, scanErr := scanPostRow(rows.Scan)
		if scanErr != nil {
			return storage.PostPage{}, fmt.Errorf("scan post row: %w", scanErr)
		}
		page.Posts = append(page.Posts, post)
	}
	if err := rows.Err(); err != nil {
		return storage.PostPage{}, fmt.Errorf("iterate post rows: %w", err)
	}
	if len(page.Posts) > pageSize {
		page.NextPageToken = page.Posts[pageSize-1].ID
		page.Posts = page.Posts[:pageSize]
	}
	return page, nil
}

// AddPostLike records one post-like edge.
func (s *Store) AddPostLike(ctx context.Context, postID string, userID string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	postID = strings.TrimSpace(postID)
	userID = strings.TrimSpace(userID)
	if postID == "" || userID == "" {
		return fmt.Errorf("post id and user id are required")
	}
	if at.IsZero() {
		return fmt.Errorf("like time is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO post_likes (post_id, user_id, created_at)
VALUES (?, ?, ?)
`, postID, userID, toMillis(at))
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("add post like: %w", err)
	}
	return nil
}

// RemovePostLike deletes one post-like edge.
func (s *Store) RemovePostLike(ctx context.Context, postID string, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM post_likes WHERE post_id = ? AND user_id = ?
`, strings.TrimSpace(postID), strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("remove post like: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove post like rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountPostLikes returns the like count for one post.
func (s *Store) CountPostLikes(ctx context.Context, postID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM post_likes WHERE post_id = ?
`, strings.TrimSpace(postID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count post likes: %w", err)
	}
	return count, nil
}

func scanPostRow(scan scanner) (storage.Post, error) {
	var post storage.Post
	var createdAt, updatedAt int64
	if err := scan(&post.ID, &post.AuthorID, &post.Content, &post.ImagePath, &post.Hashtags, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Post{}, storage.ErrNotFound
		}
		return storage.Post{}, err
	}
	post.CreatedAt = fromMillis(createdAt)
	post.UpdatedAt = fromMillis(updatedAt)
	return post, nil
}
