package stream

import "sync"

// Cache holds the most recently encoded buffer per quality. Latest
// wins, no history. Writers never mutate a published slice; each encode
// produces a fresh buffer and Put swaps the reference under the lock,
// so a reader always observes a complete frame.
type Cache struct {
	mu     sync.RWMutex
	frames map[int][]byte
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{frames: make(map[int][]byte)}
}

// Put stores data as the latest frame for the given quality.
func (c *Cache) Put(quality int, data []byte) {
	c.mu.Lock()
	c.frames[quality] = data
	c.mu.Unlock()
}

// Get returns the latest frame for the given quality, or nil if that
// quality has never been encoded.
func (c *Cache) Get(quality int) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames[quality]
}
