package frontier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheEvictsCleanLRUOverLimit(t *testing.T) {
	c := newStateCache(2)
	c.Put("a", StateCrawled, false)
	c.Put("b", StateCrawled, false)
	c.Put("c", StateCrawled, false)
	require.Equal(t, 2, c.Len())
	require.False(t, c.Contains("a"), "least recently used clean entry evicted")
	require.True(t, c.Contains("b"))
	require.True(t, c.Contains("c"))
}

func TestCacheNeverEvictsDirtyEntries(t *testing.T) {
	c := newStateCache(2)
	c.Put("a", StateQueued, true)
	c.Put("b", StateQueued, true)
	c.Put("c", StateQueued, true)
	require.Equal(t, 3, c.Len(), "dirty entries may exceed the limit")

	c.MarkClean()
	require.Equal(t, 2, c.Len(), "limit re-applied once entries are persisted")
}

func TestCacheGetRefreshesRecency(t *testing.T) {
	c := newStateCache(2)
	c.Put("a", 1, false)
	c.Put("b", 2, false)
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Put("c", 3, false)
	require.True(t, c.Contains("a"), "recently read entry survives")
	require.False(t, c.Contains("b"))
}

func TestCacheUpdateKeepsDirtyFlag(t *testing.T) {
	c := newStateCache(10)
	c.Put("a", StateQueued, true)
	c.Put("a", StateCrawled, false)
	c.Put("b", "x", false)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, StateCrawled, v)

	// "a" stayed dirty through the clean update, so it survives eviction
	// pressure while "b" does not.
	cSmall := newStateCache(1)
	cSmall.Put("a", StateQueued, true)
	cSmall.Put("a", StateCrawled, false)
	cSmall.Put("b", "x", false)
	require.True(t, cSmall.Contains("a"))
	require.False(t, cSmall.Contains("b"))
}

func TestCacheClear(t *testing.T) {
	c := newStateCache(2)
	c.Put("a", 1, true)
	c.Clear()
	require.Equal(t, 0, c.Len())
	require.False(t, c.Contains("a"))
}
