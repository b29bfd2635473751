package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGetDelete(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "/api/issues?status=OPEN", `{"issues":[]}`, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "/api/issues?status=OPEN")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != `{"issues":[]}` {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "/api/issues?status=OPEN", `{"issues":[{}]}`, 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, _, _ = cache.Get(ctx, "/api/issues?status=OPEN")
	if value != `{"issues":[{}]}` {
		t.Fatalf("Get() after update = %q", value)
	}

	if err := cache.Delete(ctx, "/api/issues?status=OPEN"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := cache.Get(ctx, "/api/issues?status=OPEN"); found {
		t.Fatalf("Get() expected found=false after delete")
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, _ := cache.Get(ctx, "k"); !found {
		t.Fatalf("Get() before expiry found=false")
	}

	now = now.Add(time.Minute)
	if _, found, _ := cache.Get(ctx, "k"); found {
		t.Fatalf("Get() after expiry found=true")
	}
	if keys := cache.Keys(""); len(keys) != 0 {
		t.Fatalf("Keys() after expiry = %v", keys)
	}
}

func TestMemoryCacheKeysByPrefix(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	for _, key := range []string{"/api/issues?status=DONE", "/api/issues", "/api/issues/abc"} {
		if err := cache.Set(ctx, key, "x", 0); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	keys := cache.Keys("/api/issues?")
	if len(keys) != 1 || keys[0] != "/api/issues?status=DONE" {
		t.Fatalf("Keys() = %v", keys)
	}
	if all := cache.Keys(""); len(all) != 3 {
		t.Fatalf("Keys(all) = %v", all)
	}
}

func TestMemoryCacheRejectsEmptyKey(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, " "); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
