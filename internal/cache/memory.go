// Package cache holds the per-run in-memory cache for fetched HTML and
// robots.txt payloads, so retried adapters do not re-hit the platform.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory wraps an expiring in-memory store keyed by URL hash.
type Memory struct {
	cache *gocache.Cache
}

func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	return &Memory{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// Key derives a stable cache key from a URL.
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "vcb:v1:" + hex.EncodeToString(hash[:])
}

func (m *Memory) Get(key string) ([]byte, bool) {
	if val, found := m.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	m.cache.Set(key, value, ttl)
}

func (m *Memory) Flush() {
	m.cache.Flush()
}
