package devotp

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Put(ctx, "signup", "Alice@Example.com", "123456", time.Now().UTC().Add(5*time.Minute))

	code, ok := store.Get(ctx, "signup", "alice@example.com")
	if !ok || code != "123456" {
		t.Fatalf("Get = %q, %v; want 123456, true", code, ok)
	}
	if _, ok := store.Get(ctx, "password_reset", "alice@example.com"); ok {
		t.Error("codes must be scoped by purpose")
	}
}

func TestMemoryStore_Replace(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Minute)
	store.Put(ctx, "signup", "a@b.co", "111111", exp)
	store.Put(ctx, "signup", "a@b.co", "222222", exp)
	if code, _ := store.Get(ctx, "signup", "a@b.co"); code != "222222" {
		t.Errorf("code = %q, want latest 222222", code)
	}
}

func TestMemoryStore_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.nowF = func() time.Time { return now }
	ctx := context.Background()

	store.Put(ctx, "signup", "a@b.co", "123456", now.Add(time.Minute))
	if _, ok := store.Get(ctx, "signup", "a@b.co"); !ok {
		t.Fatal("want code before expiry")
	}
	now = now.Add(time.Minute)
	if code, ok := store.Get(ctx, "signup", "a@b.co"); ok || code != "" {
		t.Errorf("Get at expiry = %q, %v; want empty, false", code, ok)
	}
	store.mu.RLock()
	n := len(store.m)
	store.mu.RUnlock()
	if n != 0 {
		t.Errorf("expired entry not cleaned up, len = %d", n)
	}
}

func TestMemoryStore_Missing(t *testing.T) {
	store := NewMemoryStore()
	if code, ok := store.Get(context.Background(), "signup", "nobody@b.co"); ok || code != "" {
		t.Errorf("Get = %q, %v", code, ok)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().UTC().Add(5 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		email := fmt.Sprintf("user%d@b.co", i)
		go func() {
			defer wg.Done()
			store.Put(ctx, "signup", email, "123456", exp)
		}()
		go func() {
			defer wg.Done()
			store.Get(ctx, "signup", email)
		}()
	}
	wg.Wait()
}
