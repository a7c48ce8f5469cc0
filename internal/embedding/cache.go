package embedding

import (
	"container/list"
	"context"
	"sync"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns a copy of the cached embedding for key if present.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return append([]float32(nil), elem.Value.(*cacheEntry).value...), true
}

// Set stores a copy of the embedding for key, evicting the least recently used entry if
// at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value = append([]float32(nil), value...)
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CachedEmbedder serves repeated texts from an EmbeddingCache. Rank requests often repeat
// the same job description, and remote providers bill per call.
type CachedEmbedder struct {
	next  Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps next with an LRU cache of the given size.
func NewCachedEmbedder(next Embedder, size int) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: NewEmbeddingCache(size)}
}

// Embed returns the cached embedding or computes and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v)
	return v, nil
}

// EmbedBatch sends only cache misses to the wrapped embedder, in one batch.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vecs, err := c.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, v := range vecs {
		out[missIdx[j]] = v
		c.cache.Set(missTexts[j], v)
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimensions() int {
	return c.next.Dimensions()
}

// Close closes the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	return c.next.Close()
}
