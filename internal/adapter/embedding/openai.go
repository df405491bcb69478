package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"docchat/internal/adapter/backoff"
)

// OpenAIEmbedder talks to any OpenAI-compatible /embeddings endpoint.
// A single model serves both the document and the query path so stored
// and query vectors stay comparable.
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	batchSize int
	client    *http.Client
	policy    *backoff.Policy
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIEmbedder(apiKeyEnv, model string, policy *backoff.Policy) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKeyEnv, model, "https://api.openai.com/v1", policy)
}

// NewOllamaEmbedder targets a local Ollama server, which exposes the
// same OpenAI-compatible surface.
func NewOllamaEmbedder(model, baseURL string, policy *backoff.Policy) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}

	dimension := 768
	switch model {
	case "nomic-embed-text":
		dimension = 768
	case "mxbai-embed-large":
		dimension = 1024
	case "all-minilm":
		dimension = 384
	case "multilingual-e5-small":
		dimension = 384
	}

	return &OpenAIEmbedder{
		apiKey:    "ollama",
		model:     model,
		baseURL:   baseURL,
		dimension: dimension,
		batchSize: 100,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		policy: policy,
	}, nil
}

func NewOpenAICompatibleEmbedder(apiKeyEnv, model, baseURL string, policy *backoff.Policy) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	dimension := 1536
	switch model {
	case "text-embedding-3-small":
		dimension = 1536
	case "text-embedding-3-large":
		dimension = 3072
	case "text-embedding-ada-002":
		dimension = 1536
	}

	return &OpenAIEmbedder{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		dimension: dimension,
		batchSize: 100,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		policy: policy,
	}, nil
}

// EmbedDocuments embeds all texts, batching to amortize model
// invocation overhead on multi-page documents.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding backend returned no vectors")
	}
	return embeddings[0], nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	op := func() error {
		var err error
		embeddings, err = e.requestEmbeddings(ctx, texts)
		return err
	}

	if e.policy != nil {
		if err := e.policy.Do(ctx, op); err != nil {
			return nil, err
		}
		return embeddings, nil
	}

	if err := op(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (e *OpenAIEmbedder) requestEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: e.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview, err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
