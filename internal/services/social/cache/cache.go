// Package cache implements the write-invalidate cache policy for derived
// social views.
//
// The only lifecycle operation this service performs against the cache is
// eviction: every mutation computes the set of derived-view keys it made
// stale and deletes them. Repopulation happens on the external read path.
// There is no TTL, LRU, or size bound.
package cache

import "context"

// Store is the key-value surface backing derived-view caching.
//
// Eviction is all-or-nothing per key; no component partially updates a
// cached value.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Key families for derived views. The literal formats are part of the
// deployment contract with external readers and must not change.
const (
	userPostsPrefix           = "user_posts_"
	userPostsCountPrefix      = "user_posts_count_"
	homeTimelinePrefix        = "home_timeline_"
	postCommentsPrefix        = "post_comments_"
	postCommentsCountPrefix   = "post_comments_count_"
	userNotificationsPrefix   = "user_notifications_"
	unreadNotificationsPrefix = "unread_notifications_count_"
)

// UserPostsKey returns the cached per-user post list key.
func UserPostsKey(userID string) string { return userPostsPrefix + userID }

// UserPostsCountKey returns the cached per-user post count key.
func UserPostsCountKey(userID string) string { return userPostsCountPrefix + userID }

// HomeTimelineKey returns the cached home timeline key for one user.
func HomeTimelineKey(userID string) string { return homeTimelinePrefix + userID }

// PostCommentsKey returns the cached comment list key for one post.
func PostCommentsKey(postID string) string { return postCommentsPrefix + postID }

// PostCommentsCountKey returns the cached comment count key for one post.
func PostCommentsCountKey(postID string) string { return postCommentsCountPrefix + postID }

// UserNotificationsKey returns the cached inbox key for one user.
func UserNotificationsKey(userID string) string { return userNotificationsPrefix + userID }

// UnreadNotificationsCountKey returns the cached unread count key for one user.
func UnreadNotificationsCountKey(userID string) string { return unreadNotificationsPrefix + userID }

// PostChangedKeys computes the keys made stale by creating, updating, or
// deleting one post: the author's post views plus every current
// follower's home timeline.
func PostChangedKeys(authorID string, followerIDs []string) []string {
	keys := make([]string, 0, 2+len(followerIDs))
	keys = append(keys, UserPostsKey(authorID), UserPostsCountKey(authorID))
	for _, followerID := range followerIDs {
		keys = append(keys, HomeTimelineKey(followerID))
	}
	return keys
}

// CommentChangedKeys computes the keys made stale by creating or deleting
// one comment on the given post.
func CommentChangedKeys(postID string) []string {
	return []string{PostCommentsKey(postID), PostCommentsCountKey(postID)}
}

// NotificationChangedKeys computes the keys made stale by creating or
// updating one notification for the given recipient.
func NotificationChangedKeys(recipientID string) []string {
	return []string{UserNotificationsKey(recipientID), UnreadNotificationsCountKey(recipientID)}
}

// UserRemovedKeys computes every per-user key to drop when a user is
// deleted.
func UserRemovedKeys(userID string) []string {
	return []string{
		UserPostsKey(userID),
		UserPostsCountKey(userID),
		HomeTimelineKey(userID),
		UserNotificationsKey(userID),
		UnreadNotificationsCountKey(userID),
	}
}
