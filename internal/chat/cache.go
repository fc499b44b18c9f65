package chat

import (
	"sync"
	"time"

	"github.com/thelabelsunday/invoice-checker/internal/common"
)

type cacheEntry struct {
	pdf        []byte
	addedAt    time.Time
	processing bool
}

// DocCache holds downloaded document bytes between a file upload and the
// later type-selection click, keyed by platform file id. Expired entries are
// swept on every insert; there is no background timer.
type DocCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewDocCache(ttl time.Duration) *DocCache {
	return &DocCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores document bytes and evicts every entry older than the TTL.
func (c *DocCache) Put(fileID string, pdf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for id, e := range c.entries {
		if now.Sub(e.addedAt) > c.ttl {
			delete(c.entries, id)
		}
	}
	c.entries[fileID] = &cacheEntry{pdf: pdf, addedAt: now}
}

// Consume returns the cached bytes and marks the entry as in flight. A
// missing or expired entry returns ErrCacheExpired; a second consume of an
// entry already in flight returns ErrDuplicateClick. The entry stays in the
// map until Delete so overlapping clicks on the same id are observable.
func (c *DocCache) Consume(fileID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fileID]
	if !ok {
		return nil, common.ErrCacheExpired
	}
	if c.now().Sub(e.addedAt) > c.ttl {
		delete(c.entries, fileID)
		return nil, common.ErrCacheExpired
	}
	if e.processing {
		return nil, common.ErrDuplicateClick
	}
	e.processing = true
	return e.pdf, nil
}

// Delete removes an entry on every processing exit path, success or failure.
func (c *DocCache) Delete(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fileID)
}

// Len reports the live entry count, mainly for tests.
func (c *DocCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
