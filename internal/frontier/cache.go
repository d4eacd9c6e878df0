package frontier

import "container/list"

// stateCache is the bounded fingerprint -> value mapping behind the
// state store. The size limit is enforced as LRU over clean
// (already-persisted) entries only: dirty entries are never evicted, so
// between flushes the cache may exceed the limit rather than lose state.
type stateCache struct {
	limit   int
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type cacheEntry struct {
	key   string
	value any
	dirty bool
}

func newStateCache(limit int) *stateCache {
	return &stateCache{
		limit:   limit,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *stateCache) Len() int { return len(c.entries) }

// Get returns the cached value and marks the entry recently used.
func (c *stateCache) Get(key string) (any, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

// Contains reports presence without touching recency.
func (c *stateCache) Contains(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Put inserts or updates an entry. dirty marks it as not yet persisted.
func (c *stateCache) Put(key string, value any, dirty bool) {
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.dirty = entry.dirty || dirty
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, value: value, dirty: dirty})
	c.entries[key] = el
	c.evict()
}

// evict removes least-recently-used clean entries until the cache fits
// the limit or only dirty entries remain.
func (c *stateCache) evict() {
	if c.limit <= 0 {
		return
	}
	for el := c.order.Back(); el != nil && len(c.entries) > c.limit; {
		prev := el.Prev()
		entry := el.Value.(*cacheEntry)
		if !entry.dirty {
			c.order.Remove(el)
			delete(c.entries, entry.key)
		}
		el = prev
	}
}

// Each visits every entry in no particular order.
func (c *stateCache) Each(fn func(key string, value any)) {
	for key, el := range c.entries {
		fn(key, el.Value.(*cacheEntry).value)
	}
}

// MarkClean clears the dirty flag on every entry, then trims back down to
// the limit.
func (c *stateCache) MarkClean() {
	for _, el := range c.entries {
		el.Value.(*cacheEntry).dirty = false
	}
	c.evict()
}

// Clear drops everything.
func (c *stateCache) Clear() {
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
