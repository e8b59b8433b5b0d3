package cache

import (
	"context"
	"testing"
	"time"
)

func newClockedCache(maxSize int, ttl time.Duration) (*LRUCache[string], *time.Time) {
	c := NewLRUCache[string](maxSize, ttl)
	clock := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newClockedCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newClockedCache(10, time.Minute)
	c.Set("short", "x")
	c.SetUntil("long", "y", clock.Add(time.Hour))

	*clock = clock.Add(2 * time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Error("short should have expired")
	}
	if v, ok := c.Get("long"); !ok || v != "y" {
		t.Errorf("long = %q, %v", v, ok)
	}

	*clock = clock.Add(time.Hour)
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Size = %d", c.Size())
	}
}

func TestAddUntil(t *testing.T) {
	c, clock := newClockedCache(10, time.Minute)
	until := clock.Add(time.Hour)

	if !c.AddUntil("k", "first", until) {
		t.Fatal("first add should store")
	}
	if c.AddUntil("k", "second", until) {
		t.Fatal("second add should be refused while live")
	}
	if v, _ := c.Get("k"); v != "first" {
		t.Errorf("value = %q", v)
	}

	*clock = until.Add(time.Second)
	if !c.AddUntil("k", "third", clock.Add(time.Hour)) {
		t.Fatal("add after expiry should store")
	}
}

func TestManagerSweep(t *testing.T) {
	c, clock := newClockedCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	*clock = clock.Add(time.Hour)

	var reported int
	m := NewManager(func(n int) { reported = n })
	m.Register(c)
	if got := m.Sweep(); got != 2 || reported != 2 {
		t.Errorf("Sweep = %d, reported %d", got, reported)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx, time.Hour); err != nil {
		t.Errorf("Run = %v", err)
	}
}
