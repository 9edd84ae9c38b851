package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestCache[V any](ttl time.Duration) (*Cache[string, V], *clock) {
	clk := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New[string, V](ttl)
	c.nowFunc = clk.Now
	return c, clk
}

func constLoad[V any](calls *int, v V) func(context.Context) (V, error) {
	return func(context.Context) (V, error) {
		*calls++
		return v, nil
	}
}

func TestCacheGetOrLoad(t *testing.T) {
	c, _ := newTestCache[string](time.Minute)

	calls := 0
	for i := 0; i < 3; i++ {
		val, err := c.GetOrLoad(context.Background(), "demo.myshopify.com", constLoad(&calls, "config"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if val != "config" {
			t.Errorf("expected 'config', got '%s'", val)
		}
	}

	if calls != 1 {
		t.Errorf("expected 1 load, got %d", calls)
	}
}

func TestCacheGetOrLoadPerKey(t *testing.T) {
	c, _ := newTestCache[string](time.Minute)

	calls := 0
	a, _ := c.GetOrLoad(context.Background(), "a.myshopify.com", constLoad(&calls, "A"))
	b, _ := c.GetOrLoad(context.Background(), "b.myshopify.com", constLoad(&calls, "B"))

	if a != "A" || b != "B" {
		t.Errorf("expected A/B, got %s/%s", a, b)
	}
	if calls != 2 {
		t.Errorf("expected one load per shop, got %d", calls)
	}
}

func TestCacheGetOrLoadReloadsAfterExpiry(t *testing.T) {
	c, clk := newTestCache[int](time.Minute)

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	if v, _ := c.GetOrLoad(context.Background(), "shop", load); v != 1 {
		t.Fatalf("expected first load, got %d", v)
	}

	clk.now = clk.now.Add(59 * time.Second)
	if v, _ := c.GetOrLoad(context.Background(), "shop", load); v != 1 {
		t.Errorf("expected cached value before TTL, got %d", v)
	}

	clk.now = clk.now.Add(2 * time.Second)
	if v, _ := c.GetOrLoad(context.Background(), "shop", load); v != 2 {
		t.Errorf("expected reload after TTL, got %d", v)
	}
}

func TestCacheGetOrLoadErrorNotCached(t *testing.T) {
	c, _ := newTestCache[int](time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(c.items) != 0 {
		t.Errorf("expected failed load not to be cached, got %d items", len(c.items))
	}

	val, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || val != 7 {
		t.Errorf("expected 7, got %d (%v)", val, err)
	}
}

func TestCacheGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	c := New[string, int](time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrLoad(context.Background(), "shop", load); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 load, got %d", n)
	}
}

func TestCacheCleanup(t *testing.T) {
	c, clk := newTestCache[string](time.Minute)

	calls := 0
	_, _ = c.GetOrLoad(context.Background(), "old", constLoad(&calls, "x"))
	clk.now = clk.now.Add(45 * time.Second)
	_, _ = c.GetOrLoad(context.Background(), "fresh", constLoad(&calls, "y"))

	clk.now = clk.now.Add(30 * time.Second)
	c.Cleanup()

	if _, ok := c.items["old"]; ok {
		t.Error("expected expired entry to be removed")
	}
	if _, ok := c.items["fresh"]; !ok {
		t.Error("expected live entry to be kept")
	}
}
