package port

import "docchat/internal/domain"

// Chunker splits extracted pages into overlapping chunks carrying
// source and page metadata.
type Chunker interface {
	Chunk(doc domain.Document, pages []Page) ([]domain.Chunk, error)
}
