package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/openplaza/plaza/internal/services/social/storage"
)

// CreateUserWithProfile atomically persists a user and its profile.
func (s *Store) CreateUserWithProfile(ctx context.Context, user storage.User, profile storage.Profile) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	user.ID = strings.TrimSpace(user.ID)
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}
	if user.Email == "" {
		return fmt.Errorf("email is required")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		return fmt.Errorf("user timestamps are required")
	}
	profile.UserID = user.ID
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = user.CreatedAt
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = user.UpdatedAt
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin user create: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback user create: %v", cause, rollbackErr)
		}
		return cause
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO users (id, username, email, name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`, user.ID, user.Username, user.Email, user.Name, toMillis(user.CreatedAt), toMillis(user.UpdatedAt)); err != nil {
		if isUniqueConstraintError(err) {
			return rollbackWith(storage.ErrAlreadyExists)
		}
		return rollbackWith(fmt.Errorf("insert user: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO profiles (user_id, bio, picture_path, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`, profile.UserID, profile.Bio, profile.PicturePath, toMillis(profile.CreatedAt), toMillis(profile.UpdatedAt)); err != nil {
		return rollbackWith(fmt.Errorf("insert profile: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user create: %w", err)
	}
	return nil
}

// GetUser loads one user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return storage.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.User{}, fmt.Errorf("user id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, username, email, name, created_at, updated_at
FROM users
WHERE id = ?
`, userID)
	return scanUserRow(row.Scan)
}

// GetUserByUsername loads one user by unique username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return storage.User{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.User{}, fmt.Errorf("username is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, username, email, name, created_at, updated_at
FROM users
WHERE username = ?
`, username)
	return scanUserRow(row.Scan)
}

// SearchUsers matches username or display name substrings.
func (s *Store) SearchUsers(ctx context.Context, query string, excludeUserID string, limit int) ([]storage.User, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, username, email, name, created_at, updated_at
FROM users
WHERE (username LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\')
  AND id != ?
ORDER BY username ASC
LIMIT ?
`, pattern, pattern, excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var results []storage.User
	for rows.Next() {
		user, scanErr := scanUserRow(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan user row: %w", scanErr)
		}
		results = append(results, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return results, nil
}

// DeleteUser removes one user row; dependent rows cascade via foreign keys.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetProfile loads one profile by user id.
func (s *Store) GetProfile(ctx context.Context, userID string) (storage.Profile, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Profile{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.Profile{}, fmt.Errorf("user id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT user_id, bio, picture_path, created_at, updated_at
FROM profiles
WHERE user_id = ?
`, userID)

	var profile storage.Profile
	var createdAt, updatedAt int64
	if err := row.Scan(&profile.UserID, &profile.Bio, &profile.PicturePath, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Profile{}, storage.ErrNotFound
		}
		return storage.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	profile.CreatedAt = fromMillis(createdAt)
	profile.UpdatedAt = fromMillis(updatedAt)
	return profile, nil
}

// PutProfile upserts one profile row keyed by user id.
func (s *Store) PutProfile(ctx context.Context, profile storage.Profile) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	profile.UserID = strings.TrimSpace(profile.UserID)
	if profile.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if profile.CreatedAt.IsZero() || profile.UpdatedAt.IsZero() {
		return fmt.Errorf("profile timestamps are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO profiles (user_id, bio, picture_path, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	bio = excluded.bio,
	picture_path = excluded.picture_path,
	updated_at = excluded.updated_at
`, profile.UserID, profile.Bio, profile.PicturePath, toMillis(profile.CreatedAt), toMillis(profile.UpdatedAt))
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func scanUserRow(scan scanner) (storage.User, error) {
	var user storage.User
	var createdAt, updatedAt int64
	if err := scan(&user.ID, &user.Username, &user.Email, &user.Name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
