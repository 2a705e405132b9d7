package cache

import (
	"context"
	"log"
)

// Invalidator evicts derived-view keys from a cache store.
//
// Eviction is best-effort: a cache backend failure never fails the
// mutation that triggered it. Failures are logged and swallowed.
type Invalidator struct {
	store Store
}

// NewInvalidator creates an invalidator over the provided store. A nil
// store yields a no-op invalidator.
func NewInvalidator(store Store) *Invalidator {
	return &Invalidator{store: store}
}

// Evict deletes the provided keys, logging any backend failure.
func (i *Invalidator) Evict(ctx context.Context, keys ...string) {
	if i == nil || i.store == nil || len(keys) == 0 {
		return
	}
	if err := i.store.Delete(ctx, keys...); err != nil {
		log.Printf("cache evict %v: %v", keys, err)
	}
}

// PostChanged evicts the derived views affected by a post mutation.
func (i *Invalidator) PostChanged(ctx context.Context, authorID string, followerIDs []string) {
	i.Evict(ctx, PostChangedKeys(authorID, followerIDs)...)
}

// CommentChanged evicts the derived views affected by a comment mutation.
func (i *Invalidator) CommentChanged(ctx context.Context, postID string) {
	i.Evict(ctx, CommentChangedKeys(postID)...)
}

// NotificationChanged evicts the recipient's derived notification views.
func (i *Invalidator) NotificationChanged(ctx context.Context, recipientID string) {
	i.Evict(ctx, NotificationChangedKeys(recipientID)...)
}

// UserRemoved evicts every per-user derived view after a user deletion.
func (i *Invalidator) UserRemoved(ctx context.Context, userID string) {
	i.Evict(ctx, UserRemovedKeys(userID)...)
}
