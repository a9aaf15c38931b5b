package embedding

import (
	"container/list"
	"crypto/sha256"
	"sync"
)

// EmbeddingCache is an LRU of embeddings keyed by the SHA-256 of the embedded text, so large
// code blocks are not kept in memory twice. A capacity of zero or less disables it.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[[sha256.Size]byte]*list.Element
	order    *list.List // front = most recently used
	hits     uint64
	misses   uint64
}

type cached struct {
	digest [sha256.Size]byte
	vec    []float32
}

// NewEmbeddingCache returns a cache holding at most capacity embeddings.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[[sha256.Size]byte]*list.Element),
		order:    list.New(),
	}
}

// Get returns the embedding cached for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	if c.capacity <= 0 {
		return nil, false
	}
	d := sha256.Sum256([]byte(text))
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[d]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cached).vec, true
}

// Set caches vec for text, evicting the least recently used embedding when full.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	if c.capacity <= 0 {
		return
	}
	d := sha256.Sum256([]byte(text))
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[d]; ok {
		el.Value.(*cached).vec = vec
		c.order.MoveToFront(el)
		return
	}
	c.entries[d] = c.order.PushFront(&cached{digest: d, vec: vec})
	for c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cached).digest)
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns lookup hits and misses since creation.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
