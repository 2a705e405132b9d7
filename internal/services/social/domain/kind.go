package domain

import "strings"

// Persisted notification kind values. The literals are part of the stored
// data contract and must not change.
const (
	// KindLikePost marks a notification for a post receiving a like.
	KindLikePost = "like_post"
	// KindLikeComment marks a notification for a comment receiving a like.
	KindLikeComment = "like_comment"
	// KindComment marks a notification for a post receiving a comment.
	KindComment = "comment"
	// KindFollow marks a notification for a user gaining a follower.
	KindFollow = "follow"
	// KindNewPost marks a follower notification for new content from a
	// followed author.
	KindNewPost = "new_post"
)

// ValidKind reports whether value is a persisted notification kind.
func ValidKind(value string) bool {
	switch strings.TrimSpace(value) {
	case KindLikePost, KindLikeComment, KindComment, KindFollow, KindNewPost:
		return true
	}
	return false
}

// Dedupe keys are scoped to the recipient, so the sender plus the
// referenced entity is enough to identify a semantically identical event.

func followDedupeKey(senderID string) string {
	return KindFollow + ":" + senderID
}

func likePostDedupeKey(senderID, postID string) string {
	return KindLikePost + ":" + senderID + ":" + postID
}

func likeCommentDedupeKey(senderID, commentID string) string {
	return KindLikeComment + ":" + senderID + ":" + commentID
}

func commentDedupeKey(senderID, postID, commentID string) string {
	return KindComment + ":" + senderID + ":" + postID + ":" + commentID
}

func newPostDedupeKey(senderID, postID string) string {
	return KindNewPost + ":" + senderID + ":" + postID
}
