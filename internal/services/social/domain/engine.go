// Package domain implements the notification rule engine and the cascade
// cleanup engine for the social graph.
//
// The rule engine maps each social-graph mutation to at most one
// notification record. Rules run synchronously after the triggering
// mutation commits, so the engine always observes post-mutation state.
// Duplicate suppression is layered: a read-before-write check handles the
// common case and the storage-level uniqueness constraint on
// (recipient, dedupe key) closes the concurrent-writer race.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openplaza/plaza/internal/platform/id"
	"github.com/openplaza/plaza/internal/services/social/cache"
	"github.com/openplaza/plaza/internal/services/social/storage"
)

var (
	// ErrStoreNotConfigured indicates the engine is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("notification store is not configured")
	// ErrActorRequired indicates the acting user id is required.
	ErrActorRequired = errors.New("actor user id is required")
	// ErrTargetRequired indicates the target id is required.
	ErrTargetRequired = errors.New("target id is required")
)

// EngineStore is the persistence surface the rule engine reads and writes.
//
// The engine owns Notification records only; it resolves primary entities
// to find recipients and never mutates them.
type EngineStore interface {
	GetUser(ctx context.Context, userID string) (storage.User, error)
	GetPost(ctx context.Context, postID string) (storage.Post, error)
	GetComment(ctx context.Context, commentID string) (storage.Comment, error)
	ListFollowerIDs(ctx context.Context, profileUserID string) ([]string, error)
	PutNotification(ctx context.Context, notification storage.Notification) error
	GetNotificationByRecipientAndDedupeKey(ctx context.Context, recipientID string, dedupeKey string) (storage.Notification, error)
}

// Engine evaluates notification rules for social-graph mutations.
type Engine struct {
	store       EngineStore
	invalidator *cache.Invalidator
	clock       func() time.Time
	newID       func() (string, error)
}

// NewEngine constructs a rule engine over the provided store and cache
// invalidator. Nil clock and id generator fall back to production values.
func NewEngine(store EngineStore, invalidator *cache.Invalidator, clock func() time.Time, newID func() (string, error)) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Engine{
		store:       store,
		invalidator: invalidator,
		clock:       clock,
		newID:       newID,
	}
}

// NotifyFollow records a follow notification for the followed user.
// Reports whether a notification was created.
func (e *Engine) NotifyFollow(ctx context.Context, actorID string, targetUserID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrStoreNotConfigured
	}
	actorID = strings.TrimSpace(actorID)
	targetUserID = strings.TrimSpace(targetUserID)
	if actorID == "" {
		return false, ErrActorRequired
	}
	if targetUserID == "" {
		return false, ErrTargetRequired
	}
	if actorID == targetUserID {
		return false, nil
	}
	target, err := e.store.GetUser(ctx, targetUserID)
	if err != nil {
		return false, fmt.Errorf("resolve follow target: %w", err)
	}

	return e.create(ctx, storage.Notification{
		RecipientID: target.ID,
		SenderID:    actorID,
		Kind:        KindFollow,
		DedupeKey:   followDedupeKey(actorID),
	})
}

// NotifyLikePost records a like notification for the post author.
// Reports whether a notification was created.
func (e *Engine) NotifyLikePost(ctx context.Context, actorID string, postID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrStoreNotConfigured
	}
	actorID = strings.TrimSpace(actorID)
	postID = strings.TrimSpace(postID)
	if actorID == "" {
		return false, ErrActorRequired
	}
	if postID == "" {
		return false, ErrTargetRequired
	}
	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("resolve liked post: %w", err)
	}
	if actorID == post.AuthorID {
		return false, nil
	}

	return e.create(ctx, storage.Notification{
		RecipientID: post.AuthorID,
		SenderID:    actorID,
		Kind:        KindLikePost,
		PostID:      post.ID,
		DedupeKey:   likePostDedupeKey(actorID, post.ID),
	})
}

// NotifyLikeComment records a like notification for the comment author.
// Reports whether a notification was created.
func (e *Engine) NotifyLikeComment(ctx context.Context, actorID string, commentID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrStoreNotConfigured
	}
	actorID = strings.TrimSpace(actorID)
	commentID = strings.TrimSpace(commentID)
	if actorID == "" {
		return false, ErrActorRequired
	}
	if commentID == "" {
		return false, ErrTargetRequired
	}
	comment, err := e.store.GetComment(ctx, commentID)
	if err != nil {
		return false, fmt.Errorf("resolve liked comment: %w", err)
	}
	if actorID == comment.AuthorID {
		return false, nil
	}

	return e.create(ctx, storage.Notification{
		RecipientID: comment.AuthorID,
		SenderID:    actorID,
		Kind:        KindLikeComment,
		CommentID:   comment.ID,
		DedupeKey:   likeCommentDedupeKey(actorID, comment.ID),
	})
}

// NotifyComment records a comment notification for the post author.
// Reports whether a notification was created.
//
// The dedupe key includes the new comment id, so the duplicate check is
// vacuous at creation time; it still guards replayed calls for the same
// comment.
func (e *Engine) NotifyComment(ctx context.Context, actorID string, postID string, commentID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrStoreNotConfigured
	}
	actorID = strings.TrimSpace(actorID)
	postID = strings.TrimSpace(postID)
	commentID = strings.TrimSpace(commentID)
	if actorID == "" {
		return false, ErrActorRequired
	}
	if postID == "" || commentID == "" {
		return false, ErrTargetRequired
	}
	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("resolve commented post: %w", err)
	}
	comment, err := e.store.GetComment(ctx, commentID)
	if err != nil {
		return false, fmt.Errorf("resolve comment: %w", err)
	}
	if actorID == post.AuthorID {
		return false, nil
	}

	return e.create(ctx, storage.Notification{
		RecipientID: post.AuthorID,
		SenderID:    actorID,
		Kind:        KindComment,
		PostID:      post.ID,
		CommentID:   comment.ID,
		DedupeKey:   commentDedupeKey(actorID, post.ID, comment.ID),
	})
}

// NotifyNewPost fans a new-post notification out to every follower of the
// author, excluding the author. Returns the number of notifications
// created.
//
// Followers are read after the post commit, so a follower added in the
// same request window is included.
func (e *Engine) NotifyNewPost(ctx context.Context, authorID string, postID string) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrStoreNotConfigured
	}
	authorID = strings.TrimSpace(authorID)
	postID = strings.TrimSpace(postID)
	if authorID == "" {
		return 0, ErrActorRequired
	}
	if postID == "" {
		return 0, ErrTargetRequired
	}
	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("resolve new post: %w", err)
	}
	followerIDs, err := e.store.ListFollowerIDs(ctx, authorID)
	if err != nil {
		return 0, fmt.Errorf("list author followers: %w", err)
	}

	created := 0
	for _, followerID := range followerIDs {
		if followerID == authorID {
			continue
		}
		wasCreated, err := e.create(ctx, storage.Notification{
			RecipientID: followerID,
			SenderID:    authorID,
			Kind:        KindNewPost,
			PostID:      post.ID,
			DedupeKey:   newPostDedupeKey(authorID, post.ID),
		})
		if err != nil {
			return created, err
		}
		if wasCreated {
			created++
		}
	}
	return created, nil
}

// create persists one notification unless an identical one already
// exists, then evicts the recipient's notification cache views.
func (e *Engine) create(ctx context.Context, notification storage.Notification) (bool, error) {
	_, err := e.store.GetNotificationByRecipientAndDedupeKey(ctx, notification.RecipientID, notification.DedupeKey)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	notificationID, err := e.newID()
	if err != nil {
		return false, fmt.Errorf("generate notification id: %w", err)
	}
	notification.ID = notificationID
	notification.CreatedAt = e.nowUTC()

	if err := e.store.PutNotification(ctx, notification); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Lost the race to an identical concurrent event.
			return false, nil
		}
		return false, err
	}

	e.invalidator.NotificationChanged(ctx, notification.RecipientID)
	return true, nil
}

func (e *Engine) nowUTC() time.Time {
	if e.clock == nil {
		return time.Now().UTC()
	}
	return e.clock().UTC()
}
