package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryListingCache is the in-process fallback used when Redis is disabled
// or unreachable.
type MemoryListingCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	rateLimits sync.Map
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryListingCache() *MemoryListingCache {
	return &MemoryListingCache{
		entries: make(map[string]memoryEntry),
	}
}

func (r *MemoryListingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(r.entries, key)
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (r *MemoryListingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (r *MemoryListingCache) Invalidate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]memoryEntry)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryListingCache) CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(clientID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(clientID, entry)
	return entry.count <= limit, nil
}
