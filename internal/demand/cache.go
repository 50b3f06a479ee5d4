package demand

import (
	"container/list"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ResponseCache is a bounded LRU of batch responses with a fixed TTL.
type ResponseCache struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
	lru     *list.List
}

type cacheEntry struct {
	key      string
	response *Response
	storedAt time.Time
	element  *list.Element
}

// NewResponseCache creates a cache. A non-positive capacity or ttl yields a
// cache that never stores anything.
func NewResponseCache(capacity int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

func (rc *ResponseCache) disabled() bool {
	return rc == nil || rc.capacity <= 0 || rc.ttl <= 0
}

// Get returns a live entry and marks it most recently used.
func (rc *ResponseCache) Get(key string) (*Response, bool) {
	if rc.disabled() {
		return nil, false
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()

	entry, ok := rc.entries[key]
	if !ok {
		return nil, false
	}
	if rc.now().Sub(entry.storedAt) > rc.ttl {
		rc.removeLocked(key)
		return nil, false
	}
	rc.lru.MoveToFront(entry.element)
	return entry.response, true
}

// Put stores resp under key, evicting the least recently used entry when
// full.
func (rc *ResponseCache) Put(key string, resp *Response) {
	if rc.disabled() {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if entry, ok := rc.entries[key]; ok {
		entry.response = resp
		entry.storedAt = rc.now()
		rc.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{key: key, response: resp, storedAt: rc.now()}
	entry.element = rc.lru.PushFront(entry)
	rc.entries[key] = entry

	for rc.lru.Len() > rc.capacity {
		oldest := rc.lru.Back()
		rc.removeLocked(oldest.Value.(*cacheEntry).key)
	}
}

// removeLocked must be called with mu held.
func (rc *ResponseCache) removeLocked(key string) {
	if entry, ok := rc.entries[key]; ok {
		rc.lru.Remove(entry.element)
		delete(rc.entries, key)
	}
}

// Len is the number of stored entries, expired or not.
func (rc *ResponseCache) Len() int {
	if rc == nil {
		return 0
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}

// requestKey hashes the ordered monitor identities together with the
// bucket configuration.
func requestKey(monitors []*Monitor, bucketMinutes, horizonHours int) string {
	keys := make([]string, len(monitors))
	for i, m := range monitors {
		keys[i] = m.Key()
	}
	data, _ := json.Marshal(map[string]interface{}{
		"monitors": keys,
		"bucket":   bucketMinutes,
		"horizon":  horizonHours,
	})
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
