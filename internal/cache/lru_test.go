package cache

import (
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %d, %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("c = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRU[int, string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(1, "one")
	c.Set(2, "two")
	now = now.Add(30 * time.Second)
	c.Set(2, "two again")

	now = now.Add(45 * time.Second)
	if _, ok := c.Get(1); ok {
		t.Error("1 should have expired")
	}
	if v, ok := c.Get(2); !ok || v != "two again" {
		t.Errorf("2 = %q, %v", v, ok)
	}

	now = now.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c := NewLRU[string, int](0, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1 for a minimum size cache", c.Len())
	}
	c.Delete("b")
	if c.Len() != 0 {
		t.Errorf("Len after Delete = %d", c.Len())
	}
	c.Set("x", 1)
	c.Purge()
	if _, ok := c.Get("x"); ok {
		t.Error("x survived Purge")
	}
}

func TestJanitorStartStop(t *testing.T) {
	c := NewLRU[string, int](4, time.Nanosecond)
	c.Set("a", 1)

	j := NewJanitor()
	j.Register(c)
	j.Start(time.Millisecond)
	j.Start(time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	j.Stop()
	j.Stop()

	if c.Len() != 0 {
		t.Errorf("Len = %d, janitor did not clean", c.Len())
	}
}
