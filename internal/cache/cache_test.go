package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New()

	c.Set("k", "v", time.Minute)
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("expected cached value, got %v ok=%v", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("unexpected hit for missing key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New()

	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry must be dropped on read, len=%d", c.Len())
	}
}

func TestCache_ZeroTTLDisablesCaching(t *testing.T) {
	c := New()

	c.Set("k", "v", 0)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("zero ttl must not cache")
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New()

	c.Set("stale", 1, 5*time.Millisecond)
	c.Set("fresh", 2, time.Minute)
	time.Sleep(20 * time.Millisecond)

	c.Sweep()
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after sweep, got %d", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatalf("fresh entry must survive sweep")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := New()

	c.Set("k", 1, time.Minute)
	c.Set("k", 2, time.Minute)
	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Fatalf("expected overwritten value, got %v", got)
	}
	if c.Len() != 1 {
		t.Fatalf("overwrite must not grow the cache, len=%d", c.Len())
	}
}
