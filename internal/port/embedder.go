package port

import "context"

// Embedder generates vector embeddings for text. The same model serves
// both the document and the query path so stored vectors and query
// vectors are comparable under cosine distance.
type Embedder interface {
	// EmbedDocuments generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text. Cancelling the
	// context stops in-flight requests and pending retries.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
