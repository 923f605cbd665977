package rules

import (
	"os"
	"sync"
	"time"
)

type cacheEntry struct {
	modTime time.Time
	size    int64
	value   any
}

// fileCache memoizes parsed files until their modification time or size changes.
// Values must be treated as read-only by callers.
type fileCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    int
}

func newFileCache() *fileCache {
	return &fileCache{entries: make(map[string]cacheEntry)}
}

func (c *fileCache) get(path string, parse func([]byte) (any, error)) (any, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.mu.Lock()
		delete(c.entries, path)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	if e, ok := c.entries[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		c.hits++
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := parse(data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), value: v}
	c.mu.Unlock()
	return v, nil
}
