package memory

import (
	"context"
	"testing"
)

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	store := New()
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

	if err := store.Delete(ctx, "user_posts_user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := store.Get(ctx, "user_posts_user-1"); err != nil || ok {
		t.Fatalf("expected miss after delete, got ok=%t err=%v", ok, err)
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	t.Parallel()

	store := New()
	if _, ok, err := store.Get(context.Background(), "absent"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%t err=%v", ok, err)
	}
}

func TestStore_DeleteManyIncludingAbsent(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, key, []byte(key)); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if err := store.Delete(ctx, "a", "absent", "c"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := store.Len(); got != 1 {
		t.Fatalf("store size = %d, want 1", got)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	if err := store.Set(ctx, "key", []byte("original")); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, _, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	value[0] = 'X'
	again, _, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if string(again) != "original" {
		t.Fatalf("stored value mutated to %q", again)
	}
}
