// Package media manages uploaded image resources referenced by posts and
// profiles.
package media

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DefaultProfilePicture is the shared placeholder assigned to new
// profiles. It is never removed by cleanup.
const DefaultProfilePicture = "profile_pics/default.jpg"

// Remover deletes stored resources by path. Implementations must treat
// missing files as success.
type Remover interface {
	Remove(path string) error
}

// DiskStore removes uploaded resources from a local media root.
type DiskStore struct {
	root string
}

// NewDiskStore creates a disk-backed media store rooted at dir.
func NewDiskStore(dir string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("media root is required")
	}
	return &DiskStore{root: filepath.Clean(dir)}, nil
}

// Remove deletes one stored resource. A missing file is not an error.
// Paths escaping the media root are rejected.
func (s *DiskStore) Remove(path string) error {
	if s == nil {
		return fmt.Errorf("media store is not configured")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	full := filepath.Join(s.root, filepath.Clean("/"+path))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return fmt.Errorf("resource path %q escapes media root", path)
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove resource %s: %w", path, err)
	}
	return nil
}

// RemoveBestEffort removes one stored resource, logging and swallowing
// failures. Cleanup never blocks or rolls back the primary delete.
func RemoveBestEffort(remover Remover, path string) {
	if remover == nil || strings.TrimSpace(path) == "" {
		return
	}
	if err := remover.Remove(path); err != nil {
		log.Printf("remove media resource %s: %v", path, err)
	}
}

// IsDefaultProfilePicture reports whether path names the shared
// placeholder profile picture.
func IsDefaultProfilePicture(path string) bool {
	return strings.Contains(path, "default.jpg")
}
