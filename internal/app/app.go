// Package app assembles the configured adapters into the running
// application: one embedder, one generation backend, one index, and
// the use cases on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docchat/config"
	"docchat/internal/adapter/backoff"
	"docchat/internal/adapter/cache"
	"docchat/internal/adapter/chunker"
	"docchat/internal/adapter/embedding"
	"docchat/internal/adapter/extract"
	"docchat/internal/adapter/fs"
	"docchat/internal/adapter/index"
	"docchat/internal/adapter/llm"
	"docchat/internal/adapter/storage"
	"docchat/internal/domain"
	"docchat/internal/logger"
	"docchat/internal/port"
	"docchat/internal/usecase"
)

// App holds the wired application. Build it once per process with New.
type App struct {
	Config      *config.Config
	Index       *index.Index
	Ingestor    *usecase.Ingestor
	Retriever   *usecase.Retriever
	Synthesizer *usecase.Synthesizer
	Scanner     *fs.Scanner
}

// New wires the application for the project rooted at root. A missing
// index is bootstrapped transparently; a corrupt one stops startup so
// the operator can decide what to do with the artifacts.
func New(ctx context.Context, cfg *config.Config, root string) (*App, error) {
	policy := backoff.Default()

	embedder, err := buildEmbedder(cfg, policy)
	if err != nil {
		return nil, err
	}

	generator, router, err := buildGeneration(cfg, policy)
	if err != nil {
		return nil, err
	}

	indexDir := cfg.IndexDir(root)

	var syncer *storage.Syncer
	if cfg.Storage.Bucket != "" {
		store, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to set up bucket storage: %w", err)
		}
		syncer = storage.NewSyncer(store, indexDir)
		if err := pullIfNewer(ctx, syncer); err != nil {
			return nil, err
		}
	}

	idx, err := openOrBootstrap(ctx, indexDir, embedder)
	if err != nil {
		return nil, err
	}

	resultCache := cache.NewResultCache(cfg.Retrieve.CacheSize, 5*time.Minute)

	ingestOpts := []usecase.IngestorOption{
		usecase.WithCache(resultCache),
		usecase.WithDedupe(cfg.Ingest.Dedupe),
	}
	if syncer != nil {
		ingestOpts = append(ingestOpts, usecase.WithSyncer(syncer))
	}

	ingestor := usecase.NewIngestor(
		extract.NewPDFExtractor(),
		chunker.NewRecursiveChunker(cfg.Chunk.Size, cfg.Chunk.Overlap),
		embedder,
		idx,
		cfg.Embedding.BatchSize,
		ingestOpts...,
	)

	synthOpts := []usecase.SynthesizerOption{}
	if router != nil {
		synthOpts = append(synthOpts, usecase.WithRouter(router))
	}

	return &App{
		Config:      cfg,
		Index:       idx,
		Ingestor:    ingestor,
		Retriever:   usecase.NewRetriever(embedder, idx, resultCache),
		Synthesizer: usecase.NewSynthesizer(generator, cfg.Answer.MaxLines, cfg.Answer.Fallback, synthOpts...),
		Scanner:     fs.NewScanner(cfg.Ingest.Includes, cfg.Ingest.Excludes),
	}, nil
}

func (a *App) Close() error {
	return a.Index.Close()
}

func buildEmbedder(cfg *config.Config, policy *backoff.Policy) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "openai":
		baseURL := e.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return embedding.NewOpenAICompatibleEmbedder(e.APIKeyEnv, e.Model, baseURL, policy)
	case "ollama":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL, policy)
	case "mock":
		return embedding.NewMockEmbedder(e.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", e.Provider)
	}
}

func buildGeneration(cfg *config.Config, policy *backoff.Policy) (port.LLM, port.RoutingPolicy, error) {
	g := cfg.Generation
	timeout := time.Duration(g.TimeoutSecs) * time.Second

	backend, err := buildLLM(g.Provider, g, timeout, policy)
	if err != nil {
		return nil, nil, err
	}

	if !g.Router.Enabled {
		return backend, nil, nil
	}

	// Routing sends keyword questions to the hosted API and everything
	// else to the local model.
	hosted, err := buildLLM("openai", g, timeout, policy)
	if err != nil {
		return nil, nil, err
	}
	local, err := buildLLM("ollama", g, timeout, policy)
	if err != nil {
		return nil, nil, err
	}
	return backend, llm.NewKeywordRouter(g.Router.Keywords, hosted, local), nil
}

func buildLLM(provider string, g config.GenerationConfig, timeout time.Duration, policy *backoff.Policy) (port.LLM, error) {
	switch provider {
	case "openai":
		return llm.NewOpenAIClient(g.APIKeyEnv, g.Model, g.BaseURL, timeout, policy)
	case "ollama":
		return llm.NewOllamaClient(g.Model, g.BaseURL, timeout, policy)
	case "mock":
		return &llm.MockLLM{Response: "mock answer"}, nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}

func pullIfNewer(ctx context.Context, syncer *storage.Syncer) error {
	newer, err := syncer.RemoteNewer(ctx)
	if err != nil {
		return fmt.Errorf("failed to check remote index: %w", err)
	}
	if !newer {
		return nil
	}
	logger.Info("remote index is newer, pulling")
	return syncer.Pull(ctx)
}

func openOrBootstrap(ctx context.Context, dir string, embedder port.Embedder) (*index.Index, error) {
	idx, err := index.Open(dir, embedder.ModelName(), embedder.Dimension())
	if err == nil {
		return idx, nil
	}
	if errors.Is(err, domain.ErrIndexMissing) {
		logger.Info("no index at %s, bootstrapping", dir)
		return index.Bootstrap(ctx, dir, embedder)
	}
	return nil, err
}
