package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(capacity int, ttl time.Duration) (*LRUCache[string], *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](capacity, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "1")
	c.Set("a", "2")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Len())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_Expiry(t *testing.T) {
	c, now := newTestCache(10, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	*now = now.Add(30 * time.Second)
	c.Set("b", "3") // refreshes b

	*now = now.Add(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok, "a expired")
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	*now = now.Add(time.Minute)
	assert.Equal(t, 1, c.CleanupExpired())
	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_DeleteClearStats(t *testing.T) {
	c, _ := newTestCache(0, time.Minute)

	c.Set("a", "1")
	c.Delete("a")
	assert.Equal(t, 0, c.Len())

	c.Set("b", "2")
	c.Clear()
	assert.Equal(t, 0, c.Len())

	stats := c.GetStats()
	assert.Equal(t, CacheStats{Capacity: 1, Size: 0, TTL: time.Minute}, stats)
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("k%d", (g*100+i)%80)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
