package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// VectorCache holds embedding vectors keyed by the hash of their source
// text, so identical claim texts are only sent to the embedding
// provider once per run. In-memory only; nothing survives the process.
type VectorCache struct {
	cache *gocache.Cache
}

// NewVectorCache creates a vector cache with the given TTL
func NewVectorCache(defaultTTL, cleanupInterval time.Duration) *VectorCache {
	return &VectorCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves the vector for a text, if cached
func (c *VectorCache) Get(text string) ([]float32, bool) {
	if val, found := c.cache.Get(Key(text)); found {
		return val.([]float32), true
	}
	return nil, false
}

// Set stores the vector for a text
func (c *VectorCache) Set(text string, vector []float32) {
	c.cache.Set(Key(text), vector, gocache.DefaultExpiration)
}

// Clear removes all cached vectors
func (c *VectorCache) Clear() {
	c.cache.Flush()
}
