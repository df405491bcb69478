// Package llm provides generation backends behind the port.LLM
// interface. The backend is a configuration detail selected once at
// startup, not a code fork.
package llm

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

// OpenAIClient talks to any OpenAI-compatible /chat/completions
// endpoint: the hosted API or a local server such as Ollama.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	policy  *backoff.Policy
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIClient creates a hosted-API backend. The timeout bounds each
// generation call; on expiry the synthesizer degrades instead of failing
// the request.
func NewOpenAIClient(apiKeyEnv, model, baseURL string, timeout time.Duration, policy *backoff.Policy) (*OpenAIClient, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		policy:  policy,
	}, nil
}

// NewOllamaClient creates a local-model backend through Ollama's
// OpenAI-compatible surface.
func NewOllamaClient(model, baseURL string, timeout time.Duration, policy *backoff.Policy) (*OpenAIClient, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIClient{
		apiKey:  "ollama",
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		policy:  policy,
	}, nil
}

// Generate runs one completion for the prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string

	op := func() error {
		var err error
		answer, err = c.complete(ctx, prompt)
		return err
	}

	if c.policy != nil {
		if err := c.policy.Do(ctx, op); err != nil {
			return "", err
		}
		return answer, nil
	}

	if err := op(); err != nil {
		return "", err
	}
	return answer, nil
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("API returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) ModelName() string {
	return c.model
}
