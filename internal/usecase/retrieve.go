package usecase

import (
	"context"
	"fmt"
	"strings"

	"docchat/internal/domain"
	"docchat/internal/logger"
	"docchat/internal/port"
)

// RetrievalCache memoizes retrieval results per (query, k).
type RetrievalCache interface {
	Get(query string, k int) ([]domain.ScoredChunk, bool)
	Put(query string, k int, results []domain.ScoredChunk)
}

// Retriever embeds a query and finds its nearest indexed chunks.
type Retriever struct {
	embedder port.Embedder
	index    port.VectorIndex
	cache    RetrievalCache
}

func NewRetriever(embedder port.Embedder, index port.VectorIndex, cache RetrievalCache) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		cache:    cache,
	}
}

// Retrieve returns up to k chunks ranked by descending similarity.
// A blank query or non-positive k is rejected before any embedding
// call is made.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidTopK, k)
	}

	if r.cache != nil {
		if results, hit := r.cache.Get(query, k); hit {
			logger.Debug("retrieval cache hit for k=%d", k)
			return results, nil
		}
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Search(vector, k)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	logger.Debug("retrieved %d chunks for k=%d", len(results), k)

	if r.cache != nil {
		r.cache.Put(query, k, results)
	}
	return results, nil
}
