package embedding

import "context"

// MockEmbedder produces deterministic vectors derived from the input
// characters. Identical text always maps to an identical vector, which
// makes retrieval reproducible in tests.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = e.vectorFor(texts[i])
	}
	return embeddings, nil
}

func (e *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vectorFor(text), nil
}

func (e *MockEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, e.dimension)
	for j, r := range text {
		if j >= e.dimension {
			break
		}
		v[j] = float32(r) / 1000.0
	}
	return v
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
