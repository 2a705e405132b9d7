package badgercache

import (
	"context"
	"testing"
)

func TestStore_SetGetDelete(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open badger store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Fatalf("close badger store: %v", closeErr)
		}
	})

	ctx := context.Background()
	if err := store.Set(ctx, "user_posts_user-1", []byte("cached")); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := store.Get(ctx, "user_posts_user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(value) != "cached" {
		t.Fatalf("get = (%q, %t), want (cached, true)", value, ok)
	}

	if err := store.Delete(ctx, "user_posts_user-1", "absent"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := store.Get(ctx, "user_posts_user-1"); err != nil || ok {
		t.Fatalf("expected miss after delete, got ok=%t err=%v", ok, err)
	}
}

func TestStore_MissingKeyIsCleanMiss(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open badger store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Fatalf("close badger store: %v", closeErr)
		}
	})

	if _, ok, err := store.Get(context.Background(), "absent"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%t err=%v", ok, err)
	}
}
