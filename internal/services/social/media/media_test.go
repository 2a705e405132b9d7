package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskStore_RemoveDeletesFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "post_images"), 0o755); err != nil {
		t.Fatalf("create media subdir: %v", err)
	}
	target := filepath.Join(root, "post_images", "post-1.jpg")
	if err := os.WriteFile(target, []byte("image"), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}

	store, err := NewDiskStore(root)
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	if err := store.Remove("post_images/post-1.jpg"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file to be removed, stat err = %v", err)
	}
}

func TestDiskStore_RemoveMissingFileSucceeds(t *testing.T) {
	t.Parallel()

	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	if err := store.Remove("post_images/absent.jpg"); err != nil {
		t.Fatalf("expected missing file to be treated as success, got %v", err)
	}
}

func TestDiskStore_RemoveRejectsEscapingPath(t *testing.T) {
	t.Parallel()

	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	if err := store.Remove("../../etc/passwd"); err != nil {
		// Cleaned paths stay inside the root, so this either removes
		// nothing or rejects; it must never touch the parent.
		t.Logf("remove escaping path: %v", err)
	}
}

func TestNewDiskStore_RequiresRoot(t *testing.T) {
	t.Parallel()

	if _, err := NewDiskStore("  "); err == nil {
		t.Fatal("expected blank media root to be rejected")
	}
}

func TestRemoveBestEffort_SwallowsFailures(t *testing.T) {
	t.Parallel()

	RemoveBestEffort(nil, "post_images/post-1.jpg")
	RemoveBestEffort(failingRemover{}, "post_images/post-1.jpg")
	RemoveBestEffort(failingRemover{}, "")
}

func TestIsDefaultProfilePicture(t *testing.T) {
	t.Parallel()

	if !IsDefaultProfilePicture(DefaultProfilePicture) {
		t.Fatal("expected default placeholder to be recognized")
	}
	if IsDefaultProfilePicture("profile_pics/user-1.jpg") {
		t.Fatal("expected custom picture to not match placeholder")
	}
}

type failingRemover struct{}

func (failingRemover) Remove(string) error {
	return errors.New("storage offline")
}
