// Package index implements the durable vector index: a bbolt database
// holding vectors and their chunks, plus a manifest recording the
// embedding model identity the index was built with.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"docchat/internal/domain"
	"docchat/internal/port"
)

const (
	// DBFile and ManifestFile are the two durable artifacts of one index.
	DBFile       = "index.db"
	ManifestFile = "manifest.json"
)

// ArtifactNames lists the files that must be synced to object storage.
func ArtifactNames() []string {
	return []string{DBFile, ManifestFile}
}

var (
	bucketVectors = []byte("vectors")
	bucketChunks  = []byte("chunks")
)

type manifest struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Entries   int       `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Index is an append-capable nearest-neighbor index. Vectors are cached
// in memory for brute-force cosine search; bbolt transactions keep the
// durable state consistent with the cache. One writer at a time,
// concurrent readers.
type Index struct {
	dir       string
	db        *bbolt.DB
	model     string
	dimension int

	mu      sync.RWMutex
	vectors map[string][]float32
	chunks  map[string]domain.Chunk
}

type storedVector struct {
	Vector []float32 `json:"v"`
}

// Open loads a persisted index. It returns domain.ErrIndexMissing when
// no artifacts exist at dir, and domain.ErrIndexCorrupt when artifacts
// exist but cannot be loaded or were built with a different embedding
// model. A corrupt index is never repaired or overwritten here.
func Open(dir, model string, dimension int) (*Index, error) {
	dbPath := filepath.Join(dir, DBFile)
	manPath := filepath.Join(dir, ManifestFile)

	_, dbErr := os.Stat(dbPath)
	_, manErr := os.Stat(manPath)
	if os.IsNotExist(dbErr) && os.IsNotExist(manErr) {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexMissing, dir)
	}
	if os.IsNotExist(dbErr) || os.IsNotExist(manErr) {
		return nil, fmt.Errorf("%w: index artifact missing at %s", domain.ErrIndexCorrupt, dir)
	}

	data, err := os.ReadFile(manPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("%w: unreadable manifest: %v", domain.ErrIndexCorrupt, err)
	}
	if man.Model != model {
		return nil, fmt.Errorf("%w: index built with embedding model %q, configured model is %q",
			domain.ErrIndexCorrupt, man.Model, model)
	}
	if dimension > 0 && man.Dimension != dimension {
		return nil, fmt.Errorf("%w: index dimension %d, configured dimension %d",
			domain.ErrIndexCorrupt, man.Dimension, dimension)
	}

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}

	idx := &Index{
		dir:       dir,
		db:        db,
		model:     man.Model,
		dimension: man.Dimension,
		vectors:   make(map[string][]float32),
		chunks:    make(map[string]domain.Chunk),
	}

	if err := idx.load(); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

// Create makes a new empty index at dir and persists its artifacts.
func Create(dir, model string, dimension int) (*Index, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dir, DBFile), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create index db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketVectors, bucketChunks} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	idx := &Index{
		dir:       dir,
		db:        db,
		model:     model,
		dimension: dimension,
		vectors:   make(map[string][]float32),
		chunks:    make(map[string]domain.Chunk),
	}

	if err := idx.writeManifest(); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

// bootstrapText seeds a fresh index so similarity search never runs
// against a truly empty structure.
const bootstrapText = "No documents have been ingested yet. Upload a PDF to get started."

// Bootstrap creates a new index seeded with one placeholder entry and
// persists it.
func Bootstrap(ctx context.Context, dir string, embedder port.Embedder) (*Index, error) {
	idx, err := Create(dir, embedder.ModelName(), embedder.Dimension())
	if err != nil {
		return nil, err
	}

	vectors, err := embedder.EmbedDocuments(ctx, []string{bootstrapText})
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to embed placeholder: %w", err)
	}

	placeholder := domain.Chunk{
		ID:     placeholderID(),
		DocID:  "bootstrap",
		Source: "placeholder.pdf",
		Page:   domain.PageUnknown,
		Seq:    0,
		Text:   bootstrapText,
	}

	if err := idx.Add([]domain.Chunk{placeholder}, vectors); err != nil {
		idx.Close()
		return nil, err
	}

	return idx, nil
}

func placeholderID() string {
	hash := sha256.Sum256([]byte("bootstrap:placeholder"))
	return hex.EncodeToString(hash[:8])
}

// load fills the in-memory caches from the durable buckets. Every
// vector must have a retrievable chunk.
func (idx *Index) load() error {
	err := idx.db.View(func(tx *bbolt.Tx) error {
		vb := tx.Bucket(bucketVectors)
		cb := tx.Bucket(bucketChunks)
		if vb == nil || cb == nil {
			return fmt.Errorf("%w: missing bucket", domain.ErrIndexCorrupt)
		}

		return vb.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("%w: unreadable vector %s: %v", domain.ErrIndexCorrupt, k, err)
			}

			chunkData := cb.Get(k)
			if chunkData == nil {
				return fmt.Errorf("%w: vector %s has no chunk", domain.ErrIndexCorrupt, k)
			}
			var chunk domain.Chunk
			if err := json.Unmarshal(chunkData, &chunk); err != nil {
				return fmt.Errorf("%w: unreadable chunk %s: %v", domain.ErrIndexCorrupt, k, err)
			}

			idx.vectors[string(k)] = stored.Vector
			idx.chunks[string(k)] = chunk
			return nil
		})
	})
	return err
}

// Add appends a batch of entries inside one bolt transaction: either
// the whole batch commits durably or nothing changes, in memory or on
// disk.
func (idx *Index) Add(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("vector dimension mismatch at %d: expected %d, got %d", i, idx.dimension, len(v))
		}
	}
	for i, c := range chunks {
		if c.Source == "" || c.Page == "" {
			return fmt.Errorf("chunk %d missing citation metadata (source=%q, page=%q)", i, c.Source, c.Page)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	err := idx.db.Update(func(tx *bbolt.Tx) error {
		vb := tx.Bucket(bucketVectors)
		cb := tx.Bucket(bucketChunks)

		for i, chunk := range chunks {
			vecData, err := json.Marshal(storedVector{Vector: vectors[i]})
			if err != nil {
				return err
			}
			if err := vb.Put([]byte(chunk.ID), vecData); err != nil {
				return err
			}

			chunkData, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			if err := cb.Put([]byte(chunk.ID), chunkData); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store batch: %w", err)
	}

	// Transaction committed; the cache now mirrors durable state.
	for i, chunk := range chunks {
		idx.vectors[chunk.ID] = vectors[i]
		idx.chunks[chunk.ID] = chunk
	}

	return idx.writeManifest()
}

// Search returns the k nearest entries by cosine similarity. An empty
// index yields an empty result, not an error.
func (idx *Index) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", idx.dimension, len(query))
	}
	if k <= 0 || len(idx.vectors) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredChunk, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		scored = append(scored, domain.ScoredChunk{
			Chunk: idx.chunks[id],
			Score: cosineSimilarity(query, vec),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Has reports whether an entry with the given chunk ID exists.
func (idx *Index) Has(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.vectors[id]
	return ok
}

// Persist flushes the database and rewrites the manifest. Idempotent;
// last write wins.
func (idx *Index) Persist() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.db.Sync(); err != nil {
		return fmt.Errorf("failed to sync index db: %w", err)
	}
	return idx.writeManifest()
}

func (idx *Index) Stats() domain.IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return domain.IndexStats{
		Entries:   len(idx.vectors),
		Model:     idx.model,
		Dimension: idx.dimension,
	}
}

func (idx *Index) Close() error {
	return idx.db.Close()
}

// Dir returns the directory holding the index artifacts.
func (idx *Index) Dir() string {
	return idx.dir
}

// writeManifest writes the manifest through a temp file and an atomic
// rename so a crashed write never leaves a half-written manifest.
// Callers must hold idx.mu or have exclusive access to the index.
func (idx *Index) writeManifest() error {
	man := manifest{
		Model:     idx.model,
		Dimension: idx.dimension,
		Entries:   len(idx.vectors),
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(idx.dir, ManifestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(idx.dir, ManifestFile)); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
