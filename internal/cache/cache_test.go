package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock makes expiry deterministic without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(clk *fakeClock, maxEntries int) *Cache[string] {
	return New[string](Config{
		DefaultTTL: time.Minute,
		MaxEntries: maxEntries,
		Now:        clk.now,
	})
}

func TestGetSet_RoundTrip(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 10)

	c.Set("k", "v", SetOptions{TTL: time.Minute})
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestTTLExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 10)

	c.Set("k", "v", SetOptions{TTL: 30 * time.Second})

	_, ok := c.Get("k")
	require.True(t, ok)

	clk.advance(31 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.False(t, c.Has("k"))
}

func TestLRUEviction_OldestAccessGoesFirst(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 3)

	c.Set("a", "1", SetOptions{})
	clk.advance(time.Second)
	c.Set("b", "2", SetOptions{})
	clk.advance(time.Second)
	c.Set("c", "3", SetOptions{})
	clk.advance(time.Second)

	// Touch "a" so "b" becomes the least recently accessed.
	_, ok := c.Get("a")
	require.True(t, ok)
	clk.advance(time.Second)

	c.Set("d", "4", SetOptions{})

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"), "least recently accessed entry must be evicted")
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"))
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRUEviction_RegardlessOfInsertionOrder(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 5)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v", SetOptions{})
		clk.advance(time.Second)
	}
	// Re-access everything except k2 in reverse order.
	for _, k := range []string{"k4", "k3", "k1", "k0"} {
		_, ok := c.Get(k)
		require.True(t, ok)
		clk.advance(time.Second)
	}

	c.Set("k5", "v", SetOptions{})
	assert.False(t, c.Has("k2"))
	for _, k := range []string{"k0", "k1", "k3", "k4", "k5"} {
		assert.True(t, c.Has(k), "entry %s must survive", k)
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 2)

	c.Set("a", "1", SetOptions{})
	c.Set("b", "2", SetOptions{})
	c.Set("a", "updated", SetOptions{})

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "updated", got)
	assert.True(t, c.Has("b"))
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestDelete(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 10)

	c.Set("k", "v", SetOptions{})
	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
	assert.False(t, c.Has("k"))
}

func TestDeleteByTags(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 10)

	c.Set("appt:list", "x", SetOptions{Tags: []string{"agendamentos"}})
	c.Set("appt:today", "y", SetOptions{Tags: []string{"agendamentos", "hoje"}})
	c.Set("pastors", "z", SetOptions{Tags: []string{"pastores"}})

	removed := c.DeleteByTags([]string{"agendamentos"})
	assert.Equal(t, 2, removed)
	assert.False(t, c.Has("appt:list"))
	assert.False(t, c.Has("appt:today"))
	assert.True(t, c.Has("pastors"), "entries without the tag are untouched")
}

func TestKeys_SkipsExpired(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 10)

	c.Set("fresh", "v", SetOptions{TTL: time.Hour})
	c.Set("stale", "v", SetOptions{TTL: time.Second})
	clk.advance(2 * time.Second)

	keys := c.Keys()
	assert.Equal(t, []string{"fresh"}, keys)
}

func TestStats(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 10)

	c.Set("k", "v", SetOptions{})
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Sets)
	assert.Equal(t, 1, s.Size)
	assert.Greater(t, s.MemoryUsage, 0)
	assert.InDelta(t, 66.66, s.HitRate, 0.1)
	assert.InDelta(t, 2.0, s.Efficiency, 0.001)
}

func TestSweepRemovesExpired(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 10)

	c.Set("a", "v", SetOptions{TTL: time.Second})
	c.Set("b", "v", SetOptions{TTL: time.Hour})
	clk.advance(2 * time.Second)

	c.sweep()
	assert.Equal(t, 1, c.Stats().Size)
	assert.True(t, c.Has("b"))
}

func TestClear(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clk, 10)

	c.Set("a", "v", SetOptions{})
	c.Set("b", "v", SetOptions{})
	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)
}
