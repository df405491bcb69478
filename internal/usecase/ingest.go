// Package usecase wires the adapters into the three core operations:
// ingesting documents, retrieving context, and synthesizing answers.
package usecase

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat/internal/adapter/chunker"
	"docchat/internal/domain"
	"docchat/internal/logger"
	"docchat/internal/port"
)

// Invalidator is anything whose cached results must be dropped after
// the index changes.
type Invalidator interface {
	Invalidate()
}

// Syncer pushes the index artifacts to durable object storage after a
// successful ingest.
type Syncer interface {
	Push(ctx context.Context) error
}

// Ingestor runs the ingestion pipeline for one document at a time:
// extract, chunk, embed, index, persist. A failure at any stage aborts
// the run with an error naming that stage, and nothing from the failed
// run becomes visible to retrieval.
type Ingestor struct {
	extractor port.Extractor
	chunker   port.Chunker
	embedder  port.Embedder
	index     port.VectorIndex
	cache     Invalidator
	syncer    Syncer
	batchSize int
	dedupe    bool

	mu sync.Mutex
}

type IngestorOption func(*Ingestor)

// WithCache registers a retrieval cache to invalidate after ingest.
func WithCache(c Invalidator) IngestorOption {
	return func(i *Ingestor) { i.cache = c }
}

// WithSyncer registers an artifact push after each successful ingest.
func WithSyncer(s Syncer) IngestorOption {
	return func(i *Ingestor) { i.syncer = s }
}

// WithDedupe enables skipping of chunks whose content is already
// indexed. Off by default: re-ingesting a file then appends duplicates.
func WithDedupe(enabled bool) IngestorOption {
	return func(i *Ingestor) { i.dedupe = enabled }
}

func NewIngestor(
	extractor port.Extractor,
	chk port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	batchSize int,
	opts ...IngestorOption,
) *Ingestor {
	if batchSize <= 0 {
		batchSize = 100
	}
	ing := &Ingestor{
		extractor: extractor,
		chunker:   chk,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestResult reports what one pipeline run added.
type IngestResult struct {
	Document      domain.Document
	Pages         int
	ChunksCreated int
	ChunksSkipped int
	Elapsed       time.Duration
}

// Ingest runs the full pipeline for the file at path. Concurrent calls
// are serialized; each run observes the index state left by the
// previous one.
func (ing *Ingestor) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	start := time.Now()

	doc := domain.Document{
		ID:       uuid.NewString(),
		Filename: filepath.Base(path),
		Location: path,
		Uploaded: start.UTC(),
	}

	logger.Info("ingesting %s (doc %s)", doc.Filename, doc.ID)

	pages, err := ing.extractor.Extract(path)
	if err != nil {
		return nil, domain.NewStageError(domain.StageExtract, err)
	}

	chunks, err := ing.chunker.Chunk(doc, pages)
	if err != nil {
		return nil, domain.NewStageError(domain.StageChunk, err)
	}

	result := &IngestResult{Document: doc, Pages: len(pages)}

	if ing.dedupe {
		chunks, result.ChunksSkipped = ing.dropKnown(chunks)
	}
	if len(chunks) == 0 {
		logger.Info("nothing to index for %s (%d pages, %d chunks skipped)",
			doc.Filename, result.Pages, result.ChunksSkipped)
		result.Elapsed = time.Since(start)
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Embed everything before the index sees any of it: a failed batch
	// must leave the index exactly as the previous run left it.
	vectors := make([][]float32, 0, len(chunks))
	for batchStart := 0; batchStart < len(texts); batchStart += ing.batchSize {
		end := batchStart + ing.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := ing.embedder.EmbedDocuments(ctx, texts[batchStart:end])
		if err != nil {
			return nil, domain.NewStageError(domain.StageEmbed, err)
		}
		vectors = append(vectors, batch...)
	}

	// One transaction for the whole document.
	if err := ing.index.Add(chunks, vectors); err != nil {
		return nil, domain.NewStageError(domain.StageIndex, err)
	}
	result.ChunksCreated = len(chunks)

	if err := ing.index.Persist(); err != nil {
		return nil, domain.NewStageError(domain.StagePersist, err)
	}

	if ing.syncer != nil {
		if err := ing.syncer.Push(ctx); err != nil {
			return nil, domain.NewStageError(domain.StagePersist, err)
		}
	}

	if ing.cache != nil {
		ing.cache.Invalidate()
	}

	result.Elapsed = time.Since(start)
	logger.Info("indexed %s: %d pages, %d chunks in %s",
		doc.Filename, result.Pages, result.ChunksCreated, result.Elapsed.Round(time.Millisecond))

	return result, nil
}

// dropKnown filters out chunks whose content hash is already indexed
// and rewrites the kept chunks to use the content hash as their ID.
func (ing *Ingestor) dropKnown(chunks []domain.Chunk) ([]domain.Chunk, int) {
	kept := chunks[:0]
	seen := make(map[string]struct{})
	skipped := 0

	for _, c := range chunks {
		id := chunker.ContentID(c)
		if _, dup := seen[id]; dup {
			skipped++
			continue
		}
		if ing.index.Has(id) {
			skipped++
			continue
		}
		seen[id] = struct{}{}
		c.ID = id
		kept = append(kept, c)
	}
	return kept, skipped
}
