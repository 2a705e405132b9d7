package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openplaza/plaza/internal/services/social/storage"
)

// AddFollower records one follow edge.
//
// The composite primary key on (profile_user_id, follower_user_id) closes
// the concurrent-follow race: a second identical insert surfaces as
// ErrAlreadyExists instead of a duplicate edge.
func (s *Store) AddFollower(ctx context.Context, profileUserID string, followerUserID string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	profileUserID = strings.TrimSpace(profileUserID)
	followerUserID = strings.TrimSpace(followerUserID)
	if profileUserID == "" || followerUserID == "" {
		return fmt.Errorf("profile and follower user ids are required")
	}
	if at.IsZero() {
		return fmt.Errorf("follow time is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO followers (profile_user_id, follower_user_id, created_at)
VALUES (?, ?, ?)
`, profileUserID, followerUserID, toMillis(at))
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("add follower: %w", err)
	}
	return nil
}

// RemoveFollower deletes one follow edge.
func (s *Store) RemoveFollower(ctx context.Context, profileUserID string, followerUserID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	profileUserID = strings.TrimSpace(profileUserID)
	followerUserID = strings.TrimSpace(followerUserID)
	if profileUserID == "" || followerUserID == "" {
		return fmt.Errorf("profile and follower user ids are required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM followers
WHERE profile_user_id = ? AND follower_user_id = ?
`, profileUserID, followerUserID)
	if err != nil {
		return fmt.Errorf("remove follower: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove follower rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IsFollower reports whether one follow edge exists.
func (s *Store) IsFollower(ctx context.Context, profileUserID string, followerUserID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1)
FROM followers
WHERE profile_user_id = ? AND follower_user_id = ?
`, strings.TrimSpace(profileUserID), strings.TrimSpace(followerUserID)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check follower: %w", err)
	}
	return found > 0, nil
}

// ListFollowerIDs lists the follower user ids for one profile.
func (s *Store) ListFollowerIDs(ctx context.Context, profileUserID string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	profileUserID = strings.TrimSpace(profileUserID)
	if profileUserID == "" {
		return nil, fmt.Errorf("profile user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT follower_user_id
FROM followers
WHERE profile_user_id = ?
ORDER BY follower_user_id ASC
`, profileUserID)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	defer rows.Close()

	var followerIDs []string
	for rows.Next() {
		var followerID string
		if err := rows.Scan(&followerID); err != nil {
			return nil, fmt.Errorf("scan follower row: %w", err)
		}
		followerIDs = append(followerIDs, followerID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follower rows: %w", err)
	}
	return followerIDs, nil
}

// CountFollowers returns the follower count for one profile.
func (s *Store) CountFollowers(ctx context.Context, profileUserID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM followers WHERE profile_user_id = ?
`, strings.TrimSpace(profileUserID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count followers: %w", err)
	}
	return count, nil
}

// CountFollowing returns how many profiles one user follows.
func (s *Store) CountFollowing(ctx context.Context, userID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM followers WHERE follower_user_id = ?
`, strings.TrimSpace(userID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count following: %w", err)
	}
	return count, nil
}
