package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openplaza/plaza/internal/services/social/cache"
	"github.com/openplaza/plaza/internal/services/social/media"
	"github.com/openplaza/plaza/internal/services/social/storage"
)

// CascadeStore is the persistence surface the cleanup engine drives.
type CascadeStore interface {
	GetPost(ctx context.Context, postID string) (storage.Post, error)
	DeletePost(ctx context.Context, postID string) error
	GetComment(ctx context.Context, commentID string) (storage.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	ListCommentIDsByPost(ctx context.Context, postID string) ([]string, error)
	GetProfile(ctx context.Context, userID string) (storage.Profile, error)
	DeleteUser(ctx context.Context, userID string) error
	ListFollowerIDs(ctx context.Context, profileUserID string) ([]string, error)
	DeleteNotificationsByPost(ctx context.Context, postID string) error
	DeleteNotificationsByComment(ctx context.Context, commentID string) error
	DeleteNotificationsByUser(ctx context.Context, userID string) error
}

// Cascade maintains referential integrity of notifications, cached views,
// and stored media against primary-entity deletion.
//
// Notification and cache cleanup is ordered before the primary row delete
// so a failure surfaces to the caller before the entity disappears. Media
// removal is best-effort and never blocks the primary delete.
type Cascade struct {
	store       CascadeStore
	invalidator *cache.Invalidator
	mediaStore  media.Remover
}

// NewCascade constructs a cleanup engine.
func NewCascade(store CascadeStore, invalidator *cache.Invalidator, mediaStore media.Remover) *Cascade {
	return &Cascade{
		store:       store,
		invalidator: invalidator,
		mediaStore:  mediaStore,
	}
}

// CascadeDeletePost deletes one post with all dependent state: the
// notifications referencing the post or any of its comments, the comments
// themselves, the stored image, and the stale cached views of the author
// and every follower.
func (c *Cascade) CascadeDeletePost(ctx context.Context, postID string) error {
	if c == nil || c.store == nil {
		return ErrStoreNotConfigured
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return ErrTargetRequired
	}
	post, err := c.store.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("resolve post for cascade: %w", err)
	}

	commentIDs, err := c.store.ListCommentIDsByPost(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("list post comments for cascade: %w", err)
	}
	for _, commentID := range commentIDs {
		if err := c.store.DeleteNotificationsByComment(ctx, commentID); err != nil {
			return fmt.Errorf("delete comment notifications: %w", err)
		}
	}
	if err := c.store.DeleteNotificationsByPost(ctx, post.ID); err != nil {
		return fmt.Errorf("delete post notifications: %w", err)
	}

	followerIDs, err := c.store.ListFollowerIDs(ctx, post.AuthorID)
	if err != nil {
		return fmt.Errorf("list author followers for cascade: %w", err)
	}

	// Comment rows cascade with the post via foreign keys.
	if err := c.store.DeletePost(ctx, post.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	media.RemoveBestEffort(c.mediaStore, post.ImagePath)
	c.invalidator.PostChanged(ctx, post.AuthorID, followerIDs)
	c.invalidator.CommentChanged(ctx, post.ID)
	return nil
}

// CascadeDeleteComment deletes one comment, its notifications, and evicts
// the parent post's cached comment views.
func (c *Cascade) CascadeDeleteComment(ctx context.Context, commentID string) error {
	if c == nil || c.store == nil {
		return ErrStoreNotConfigured
	}
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return ErrTargetRequired
	}
	comment, err := c.store.GetComment(ctx, commentID)
	if err != nil {
		return fmt.Errorf("resolve comment for cascade: %w", err)
	}

	if err := c.store.DeleteNotificationsByComment(ctx, comment.ID); err != nil {
		return fmt.Errorf("delete comment notifications: %w", err)
	}
	if err := c.store.DeleteComment(ctx, comment.ID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	c.invalidator.CommentChanged(ctx, comment.PostID)
	return nil
}

// CascadeDeleteUser deletes one user, every notification the user sent or
// received, the user's profile picture, and the user's cached views.
// Posts, comments, the profile row, and edge rows are removed by the
// schema's referential rules.
func (c *Cascade) CascadeDeleteUser(ctx context.Context, userID string) error {
	if c == nil || c.store == nil {
		return ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrTargetRequired
	}

	if err := c.CascadeDeleteProfile(ctx, userID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := c.store.DeleteNotificationsByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user notifications: %w", err)
	}
	if err := c.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	c.invalidator.UserRemoved(ctx, userID)
	return nil
}

// CascadeDeleteProfile removes the stored profile picture unless it is
// the shared default placeholder. The profile row itself follows its user
// via referential rules.
func (c *Cascade) CascadeDeleteProfile(ctx context.Context, userID string) error {
	if c == nil || c.store == nil {
		return ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrTargetRequired
	}
	profile, err := c.store.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve profile for cascade: %w", err)
	}
	if profile.PicturePath != "" && !media.IsDefaultProfilePicture(profile.PicturePath) {
		media.RemoveBestEffort(c.mediaStore, profile.PicturePath)
	}
	return nil
}
