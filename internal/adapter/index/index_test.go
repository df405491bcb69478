package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"docchat/internal/adapter/embedding"
	"docchat/internal/domain"
)

func TestOpenMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "vectorstore"), "mock", 8)
	if !errors.Is(err, domain.ErrIndexMissing) {
		t.Errorf("expected ErrIndexMissing, got %v", err)
	}
}

func TestOpenPartialArtifacts(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(dir, "mock", 8)
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Errorf("expected ErrIndexCorrupt for lone manifest, got %v", err)
	}
}

func TestBootstrapAndReopen(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(8)

	idx, err := Bootstrap(context.Background(), dir, embedder)
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	stats := idx.Stats()
	if stats.Entries != 1 {
		t.Errorf("expected 1 placeholder entry, got %d", stats.Entries)
	}
	if stats.Model != "mock" {
		t.Errorf("expected model mock, got %s", stats.Model)
	}

	query, err := embedder.EmbedQuery(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(query, 3)
	if err != nil {
		t.Fatalf("search on bootstrapped index failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result from placeholder, got %d", len(results))
	}

	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, "mock", 8)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if reopened.Stats().Entries != 1 {
		t.Errorf("expected 1 entry after reopen, got %d", reopened.Stats().Entries)
	}
}

func TestAddSearchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(8)

	idx, err := Bootstrap(context.Background(), dir, embedder)
	if err != nil {
		t.Fatal(err)
	}

	texts := []string{
		"the quarterly revenue grew by twelve percent",
		"employees may take twenty days of paid leave",
		"the data center migration finishes in October",
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:     fmt.Sprintf("chunk-%d", i),
			DocID:  "doc-1",
			Source: "report.pdf",
			Page:   fmt.Sprintf("%d", i+1),
			Seq:    i,
			Text:   text,
		}
	}
	vectors, err := embedder.EmbedDocuments(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}

	if err := idx.Add(chunks, vectors); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if idx.Stats().Entries != 4 {
		t.Errorf("expected 4 entries, got %d", idx.Stats().Entries)
	}
	if !idx.Has("chunk-1") {
		t.Error("expected Has to find stored chunk")
	}
	if idx.Has("nope") {
		t.Error("expected Has to miss unknown id")
	}

	// The mock embedder is deterministic, so embedding the indexed
	// text again must rank that entry first.
	query, err := embedder.EmbedQuery(context.Background(), texts[1])
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(query, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "chunk-1" {
		t.Errorf("expected chunk-1 ranked first, got %s", results[0].Chunk.ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("expected results ordered by descending score")
	}

	if err := idx.Persist(); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, "mock", 8)
	if err != nil {
		t.Fatalf("reopen after persist failed: %v", err)
	}
	defer reopened.Close()

	results, err = reopened.Search(query, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Chunk.Text != texts[1] {
		t.Error("expected persisted chunk text to survive reopen")
	}
}

func TestAddDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(8)

	idx, err := Bootstrap(context.Background(), dir, embedder)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	chunk := domain.Chunk{ID: "bad", DocID: "d", Source: "a.pdf", Page: "1", Text: "x"}
	err = idx.Add([]domain.Chunk{chunk}, [][]float32{{1, 2, 3}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if idx.Has("bad") {
		t.Error("rejected batch must not be stored")
	}
	if idx.Stats().Entries != 1 {
		t.Errorf("expected entry count unchanged, got %d", idx.Stats().Entries)
	}
}

func TestAddRejectsMissingMetadata(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(8)

	idx, err := Bootstrap(context.Background(), dir, embedder)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	chunk := domain.Chunk{ID: "no-meta", DocID: "d", Text: "x"}
	vectors, _ := embedder.EmbedDocuments(context.Background(), []string{"x"})
	if err := idx.Add([]domain.Chunk{chunk}, vectors); err == nil {
		t.Error("expected error for chunk without source and page")
	}
}

func TestSearchBounds(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(8)

	idx, err := Create(dir, embedder.ModelName(), embedder.Dimension())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	query, _ := embedder.EmbedQuery(context.Background(), "anything")
	results, err := idx.Search(query, 3)
	if err != nil {
		t.Fatalf("search on empty index failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results from empty index, got %d", len(results))
	}

	texts := []string{"alpha", "bravo two", "charlie three", "delta four four", "echo"}
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:     fmt.Sprintf("c%d", i),
			DocID:  "d",
			Source: "a.pdf",
			Page:   "1",
			Seq:    i,
			Text:   text,
		}
	}
	vectors, _ := embedder.EmbedDocuments(context.Background(), texts)
	if err := idx.Add(chunks, vectors); err != nil {
		t.Fatal(err)
	}

	results, err = idx.Search(query, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Errorf("expected k capped at entry count 5, got %d", len(results))
	}

	results, err = idx.Search(query, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestOpenModelMismatch(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(8)

	idx, err := Bootstrap(context.Background(), dir, embedder)
	if err != nil {
		t.Fatal(err)
	}
	idx.Close()

	_, err = Open(dir, "text-embedding-3-small", 1536)
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Errorf("expected ErrIndexCorrupt for model mismatch, got %v", err)
	}
}

func TestOpenCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(8)

	idx, err := Bootstrap(context.Background(), dir, embedder)
	if err != nil {
		t.Fatal(err)
	}
	idx.Close()

	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err = Open(dir, "mock", 8)
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Errorf("expected ErrIndexCorrupt for garbage manifest, got %v", err)
	}

	// The corrupt artifacts must still be on disk untouched.
	if _, statErr := os.Stat(filepath.Join(dir, DBFile)); statErr != nil {
		t.Errorf("expected db artifact preserved, got %v", statErr)
	}
}

func TestConcurrentAddAndSearch(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewMockEmbedder(8)

	idx, err := Bootstrap(context.Background(), dir, embedder)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	query, _ := embedder.EmbedQuery(context.Background(), "q")

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				text := fmt.Sprintf("text %d %d", g, i)
				chunk := domain.Chunk{
					ID:     fmt.Sprintf("g%d-i%d", g, i),
					DocID:  "d",
					Source: "a.pdf",
					Page:   "1",
					Seq:    i,
					Text:   text,
				}
				vectors, err := embedder.EmbedDocuments(context.Background(), []string{text})
				if err != nil {
					t.Error(err)
					return
				}
				if err := idx.Add([]domain.Chunk{chunk}, vectors); err != nil {
					t.Errorf("concurrent add failed: %v", err)
					return
				}
				if _, err := idx.Search(query, 3); err != nil {
					t.Errorf("concurrent search failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	if idx.Stats().Entries != 21 {
		t.Errorf("expected 21 entries after concurrent adds, got %d", idx.Stats().Entries)
	}
}
