// Package cache provides a small LRU cache for retrieval results.
// Entries are invalidated in bulk whenever the index changes, so a
// cached answer can never outlive the data it was computed from.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"docchat/internal/domain"
)

type ResultCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
	gen     uint64
}

type entry struct {
	key     string
	results []domain.ScoredChunk
	stored  time.Time
	gen     uint64
}

func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResultCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func key(query string, k int) string {
	data := make([]byte, 0, len(query)+4)
	data = append(data, query...)
	data = binary.BigEndian.AppendUint32(data, uint32(k))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *ResultCache) Get(query string, k int) ([]domain.ScoredChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key(query, k)]
	if !ok {
		return nil, false
	}

	e := elem.Value.(*entry)
	if e.gen != c.gen || time.Since(e.stored) > c.ttl {
		c.lru.Remove(elem)
		delete(c.entries, e.key)
		return nil, false
	}

	c.lru.MoveToFront(elem)
	return cloneResults(e.results), true
}

func (c *ResultCache) Put(query string, k int, results []domain.ScoredChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ck := key(query, k)
	if elem, ok := c.entries[ck]; ok {
		e := elem.Value.(*entry)
		e.results = cloneResults(results)
		e.stored = time.Now()
		e.gen = c.gen
		c.lru.MoveToFront(elem)
		return
	}

	if c.lru.Len() >= c.maxSize {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}

	c.entries[ck] = c.lru.PushFront(&entry{
		key:     ck,
		results: cloneResults(results),
		stored:  time.Now(),
		gen:     c.gen,
	})
}

// cloneResults keeps cached slices private: callers may sort or
// truncate what they get back without corrupting later hits.
func cloneResults(results []domain.ScoredChunk) []domain.ScoredChunk {
	if results == nil {
		return nil
	}
	out := make([]domain.ScoredChunk, len(results))
	copy(out, results)
	return out
}

// Invalidate drops every entry. Called after each successful ingest.
func (c *ResultCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.gen++
}

func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
