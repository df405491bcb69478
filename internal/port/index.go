package port

import "docchat/internal/domain"

// VectorIndex is the durable collection of (chunk, embedding) pairs.
// Implementations must keep additions atomic with respect to
// persistence: either the full batch is durably saved or the in-memory
// state matches the last persisted state.
type VectorIndex interface {
	// Add appends new entries. chunks and vectors must be the same
	// length and every vector must match the index dimension.
	Add(chunks []domain.Chunk, vectors [][]float32) error

	// Search returns the k nearest entries by cosine similarity.
	// Returns min(k, count) results; an empty index yields no results
	// and no error.
	Search(vector []float32, k int) ([]domain.ScoredChunk, error)

	// Has reports whether an entry with the given chunk ID exists.
	Has(id string) bool

	// Persist writes the index metadata durably. Safe to call
	// repeatedly; last write wins.
	Persist() error

	Stats() domain.IndexStats

	Close() error
}
