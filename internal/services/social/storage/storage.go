// Package storage defines persistence contracts for social service state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict indicates a write conflicted with existing uniqueness constraints.
	ErrConflict = errors.New("record conflict")
)

// User stores one account identity.
type User struct {
	ID        string
	Username  string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile stores the social profile attached to one user.
//
// Exactly one profile exists per user; it is created in the same write as
// the user record.
type Profile struct {
	UserID      string
	Bio         string
	PicturePath string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Post stores one authored post.
type Post struct {
	ID        string
	AuthorID  string
	Content   string
	ImagePath string
	Hashtags  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostPage stores a paged post listing result.
type PostPage struct {
	Posts         []Post
	NextPageToken string
}

// Comment stores one comment attached to a post.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CommentPage stores a paged comment listing result.
type CommentPage struct {
	Comments      []Comment
	NextPageToken string
}

// Notification stores one derived inbox item for a recipient.
//
// PostID and CommentID are optional references; the dedupe key is scoped
// to the recipient and uniqueness-enforced at the schema level.
type Notification struct {
	ID          string
	RecipientID string
	SenderID    string
	Kind        string
	PostID      string
	CommentID   string
	DedupeKey   string
	IsRead      bool
	CreatedAt   time.Time
}

// NotificationPage stores a paged inbox listing result.
type NotificationPage struct {
	Notifications []Notification
	NextPageToken string
}

// UserStore persists account identities and their profiles.
type UserStore interface {
	// CreateUserWithProfile atomically persists a user and its profile.
	CreateUserWithProfile(ctx context.Context, user User, profile Profile) error
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	// SearchUsers matches username or display name substrings, excluding
	// one user id, capped at limit results.
	SearchUsers(ctx context.Context, query string, excludeUserID string, limit int) ([]User, error)
	// DeleteUser removes the user row; dependent rows (profile, posts,
	// comments, edges) are removed by schema referential rules.
	DeleteUser(ctx context.Context, userID string) error
}

// ProfileStore persists social profile records.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	PutProfile(ctx context.Context, profile Profile) error
}

// FollowStore persists follow edges as an explicit relation.
type FollowStore interface {
	// AddFollower records followerUserID following profileUserID.
	// Returns ErrAlreadyExists when the edge is already present.
	AddFollower(ctx context.Context, profileUserID string, followerUserID string, at time.Time) error
	// RemoveFollower deletes the edge; ErrNotFound when absent.
	RemoveFollower(ctx context.Context, profileUserID string, followerUserID string) error
	IsFollower(ctx context.Context, profileUserID string, followerUserID string) (bool, error)
	ListFollowerIDs(ctx context.Context, profileUserID string) ([]string, error)
	CountFollowers(ctx context.Context, profileUserID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
}

// PostStore persists posts and post-like edges.
type PostStore interface {
	PutPost(ctx context.Context, post Post) error
	GetPost(ctx context.Context, postID string) (Post, error)
	DeletePost(ctx context.Context, postID string) error
	ListPosts(ctx context.Context, pageSize int, pageToken string) (PostPage, error)
	ListPostsByAuthor(ctx context.Context, authorID string, pageSize int, pageToken string) (PostPage, error)
	// AddPostLike returns ErrAlreadyExists when the user already likes the post.
	AddPostLike(ctx context.Context, postID string, userID string, at time.Time) error
	// RemovePostLike returns ErrNotFound when no like edge exists.
	RemovePostLike(ctx context.Context, postID string, userID string) error
	CountPostLikes(ctx context.Context, postID string) (int, error)
}

// CommentStore persists comments and comment-like edges.
type CommentStore interface {
	PutComment(ctx context.Context, comment Comment) error
	GetComment(ctx context.Context, commentID string) (Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	ListCommentsByPost(ctx context.Context, postID string, pageSize int, pageToken string) (CommentPage, error)
	ListCommentIDsByPost(ctx context.Context, postID string) ([]string, error)
	CountCommentsByPost(ctx context.Context, postID string) (int, error)
	// AddCommentLike returns ErrAlreadyExists when the user already likes
	// the comment.
	AddCommentLike(ctx context.Context, commentID string, userID string, at time.Time) error
	// RemoveCommentLike returns ErrNotFound when no like edge exists.
	RemoveCommentLike(ctx context.Context, commentID string, userID string) error
	CountCommentLikes(ctx context.Context, commentID string) (int, error)
}

// NotificationStore persists derived notification records.
type NotificationStore interface {
	// PutNotification inserts one notification; a dedupe-key uniqueness
	// violation maps to ErrConflict.
	PutNotification(ctx context.Context, notification Notification) error
	GetNotificationByRecipientAndDedupeKey(ctx context.Context, recipientID string, dedupeKey string) (Notification, error)
	GetNotificationByRecipientAndID(ctx context.Context, recipientID string, notificationID string) (Notification, error)
	ListNotificationsByRecipient(ctx context.Context, recipientID string, pageSize int, pageToken string) (NotificationPage, error)
	CountUnreadByRecipient(ctx context.Context, recipientID string) (int, error)
	// MarkNotificationRead flips is_read only; it never creates or
	// destroys records. ErrNotFound when the recipient has no such row.
	MarkNotificationRead(ctx context.Context, recipientID string, notificationID string) (Notification, error)
	DeleteNotificationsByPost(ctx context.Context, postID string) error
	DeleteNotificationsByComment(ctx context.Context, commentID string) error
	// DeleteNotificationsByUser removes rows where the user is sender or
	// recipient.
	DeleteNotificationsByUser(ctx context.Context, userID string) error
}
