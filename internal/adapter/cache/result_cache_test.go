package cache

import (
	"fmt"
	"testing"
	"time"

	"docchat/internal/domain"
)

func results(id string) []domain.ScoredChunk {
	return []domain.ScoredChunk{{
		Chunk: domain.Chunk{ID: id, Source: "a.pdf", Page: "1", Text: "t"},
		Score: 0.9,
	}}
}

func TestCacheHitAndMiss(t *testing.T) {
	c := NewResultCache(10, time.Minute)

	if _, hit := c.Get("query", 3); hit {
		t.Error("expected miss on empty cache")
	}

	c.Put("query", 3, results("c1"))

	got, hit := c.Get("query", 3)
	if !hit {
		t.Fatal("expected hit after put")
	}
	if got[0].Chunk.ID != "c1" {
		t.Errorf("expected c1, got %s", got[0].Chunk.ID)
	}

	// Same query with a different k is a different entry.
	if _, hit := c.Get("query", 5); hit {
		t.Error("expected miss for different k")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewResultCache(10, time.Minute)
	c.Put("query", 3, results("c1"))

	c.Invalidate()

	if _, hit := c.Get("query", 3); hit {
		t.Error("expected miss after invalidate")
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got size %d", c.Size())
	}
}

func TestCacheTTL(t *testing.T) {
	c := NewResultCache(10, 10*time.Millisecond)
	c.Put("query", 3, results("c1"))

	time.Sleep(20 * time.Millisecond)

	if _, hit := c.Get("query", 3); hit {
		t.Error("expected miss after ttl expiry")
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewResultCache(3, time.Minute)

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("q%d", i), 3, results(fmt.Sprintf("c%d", i)))
	}

	if c.Size() != 3 {
		t.Errorf("expected size capped at 3, got %d", c.Size())
	}
	if _, hit := c.Get("q0", 3); hit {
		t.Error("expected oldest entry evicted")
	}
	if _, hit := c.Get("q3", 3); !hit {
		t.Error("expected newest entry retained")
	}
}

func TestCacheIsolatesCallers(t *testing.T) {
	c := NewResultCache(10, time.Minute)

	original := []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c1", Source: "a.pdf", Page: "1", Text: "t1"}, Score: 0.9},
		{Chunk: domain.Chunk{ID: "c2", Source: "a.pdf", Page: "2", Text: "t2"}, Score: 0.8},
	}
	c.Put("query", 3, original)

	// Mutating the slice given to Put must not reach the cache.
	original[0].Chunk.ID = "mutated"

	got, hit := c.Get("query", 3)
	if !hit {
		t.Fatal("expected hit")
	}
	if got[0].Chunk.ID != "c1" {
		t.Errorf("cache shares storage with Put caller: got %s", got[0].Chunk.ID)
	}

	// Mutating the slice returned from Get must not corrupt later hits.
	got[0].Chunk.ID = "also-mutated"
	got[0].Score = 0

	again, hit := c.Get("query", 3)
	if !hit {
		t.Fatal("expected second hit")
	}
	if again[0].Chunk.ID != "c1" || again[0].Score != 0.9 {
		t.Errorf("cache shares storage with Get caller: got %s score %v",
			again[0].Chunk.ID, again[0].Score)
	}
}

func TestCacheLRUOrder(t *testing.T) {
	c := NewResultCache(2, time.Minute)

	c.Put("q0", 3, results("c0"))
	c.Put("q1", 3, results("c1"))

	// Touch q0 so q1 becomes the eviction candidate.
	if _, hit := c.Get("q0", 3); !hit {
		t.Fatal("expected hit for q0")
	}

	c.Put("q2", 3, results("c2"))

	if _, hit := c.Get("q0", 3); !hit {
		t.Error("expected recently used entry retained")
	}
	if _, hit := c.Get("q1", 3); hit {
		t.Error("expected least recently used entry evicted")
	}
}
