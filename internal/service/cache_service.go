package service

import (
	"strings"
	"sync"
	"time"
)

// CacheService is an in-memory TTL cache. It backs request replay for
// Idempotency-Key headers, so entries only need to outlive retries.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService starts a sweeper that runs every interval until Close.
func NewCacheService(interval time.Duration) *CacheService {
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
		done:  make(chan struct{}),
	}
	go cs.cleanup(interval)
	return cs
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{data: value, expiresAt: cs.now().Add(ttl)}
}

// SetIfAbsent stores value only when key is missing or expired and reports whether it did.
func (cs *CacheService) SetIfAbsent(key string, value interface{}, ttl time.Duration) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	if entry, ok := cs.cache[key]; ok && !now.After(entry.expiresAt) {
		return false
	}
	cs.cache[key] = &cacheEntry{data: value, expiresAt: now.Add(ttl)}
	return true
}

func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

func (cs *CacheService) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.cache)
}

// Close stops the sweeper. It is safe to call more than once.
func (cs *CacheService) Close() {
	cs.once.Do(func() { close(cs.done) })
}

func (cs *CacheService) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.done:
			return
		case <-ticker.C:
			cs.sweep()
		}
	}
}

func (cs *CacheService) sweep() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	for key, entry := range cs.cache {
		if now.After(entry.expiresAt) {
			delete(cs.cache, key)
		}
	}
}

// IdempotencyCacheKey scopes a client supplied key to the caller and route.
func IdempotencyCacheKey(userID, route, key string) string {
	return "idem:" + userID + ":" + route + ":" + key
}
