package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"ragkit/internal/domain"
)

// queryCache memoizes similarity results per (query, topK). Entries expire
// after a TTL and the whole cache is invalidated whenever the corpus mutates,
// tracked through a generation counter.
type queryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	gen     uint64
}

type cacheEntry struct {
	results   []domain.Chunk
	timestamp time.Time
	gen       uint64
}

func newQueryCache(maxSize int, ttl time.Duration) *queryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &queryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(query string, topK int) string {
	data := []byte(query)
	data = append(data, byte(topK>>8), byte(topK))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *queryCache) get(query string, topK int) ([]domain.Chunk, bool) {
	key := cacheKey(query, topK)

	c.mu.RLock()
	entry, exists := c.entries[key]
	currentGen := c.gen
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl || entry.gen != currentGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	return entry.results, true
}

func (c *queryCache) put(query string, topK int, results []domain.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = &cacheEntry{
		results:   results,
		timestamp: time.Now(),
		gen:       c.gen,
	}
}

func (c *queryCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.gen++
}

func (c *queryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *queryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
