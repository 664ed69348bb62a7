package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		cache.Set("key1", []byte("value1"), 0)

		val, ok := cache.Get("key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := cache.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		cache.Set("key2", []byte("original"), 0)
		cache.Set("key2", []byte("updated"), 0)

		val, ok := cache.Get("key2")
		assert.True(t, ok)
		assert.Equal(t, []byte("updated"), val)
	})
}

func TestLRUCache_Expiration(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)
	cache.Set("expiring", []byte("value"), 20*time.Millisecond)

	_, ok := cache.Get("expiring")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	_, ok = cache.Get("expiring")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache(3, time.Minute)

	cache.Set("key1", []byte("1"), 0)
	cache.Set("key2", []byte("2"), 0)
	cache.Set("key3", []byte("3"), 0)

	// key1 becomes most recently used, so key2 is the eviction victim.
	cache.Get("key1")
	cache.Set("key4", []byte("4"), 0)

	assert.Equal(t, 3, cache.Size())
	_, ok := cache.Get("key2")
	assert.False(t, ok)
	_, ok = cache.Get("key1")
	assert.True(t, ok)
}

func TestLRUCache_Invalidate(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)
	cache.Set("user:1:a", []byte("a"), 0)
	cache.Set("user:1:b", []byte("b"), 0)
	cache.Set("user:2:a", []byte("c"), 0)

	assert.Equal(t, 2, cache.Invalidate("user:1:*"))
	assert.Equal(t, 1, cache.Size())

	assert.Equal(t, 1, cache.Invalidate("user:2:a"))
	assert.Equal(t, 0, cache.Invalidate("user:2:a"))
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)
	cache.Set("short", []byte("1"), 10*time.Millisecond)
	cache.Set("long", []byte("2"), time.Hour)

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Size())
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)
	cache.Set("k", []byte("v"), 0)
	cache.Get("k")
	cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, Stats{Size: 1, Hits: 1, Misses: 1}, stats)
}

func TestLRUCache_Concurrent(t *testing.T) {
	cache := NewLRUCache(50, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (n*100+j)%75)
				cache.Set(key, []byte("v"), 0)
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Size(), 50)
}
