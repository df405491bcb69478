package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docchat/internal/adapter/llm"
	"docchat/internal/domain"
)

func scored(source, page, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{ID: "x", Source: source, Page: page, Text: text},
		Score: score,
	}
}

func TestSynthesizeWithCitations(t *testing.T) {
	backend := &llm.MockLLM{Response: "Remote work needs manager approval."}
	syn := NewSynthesizer(backend, 20, "")

	chunks := []domain.ScoredChunk{
		scored("handbook.pdf", "2", "Remote work requires manager approval.", 0.95),
		scored("handbook.pdf", "2", "A signed agreement is also required.", 0.91),
		scored("policy.pdf", "7", "Approval workflows are described here.", 0.85),
	}

	answer, err := syn.Synthesize(context.Background(), "can I work remotely?", chunks)
	if err != nil {
		t.Fatal(err)
	}

	if answer.Text != "Remote work needs manager approval." {
		t.Errorf("unexpected answer text: %q", answer.Text)
	}

	// Duplicate (source, page) pairs collapse; ranking order is kept.
	if len(answer.Citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(answer.Citations))
	}
	if answer.Citations[0].Ref() != "handbook.pdf:2" {
		t.Errorf("expected first citation handbook.pdf:2, got %s", answer.Citations[0].Ref())
	}
	if answer.Citations[1].Ref() != "policy.pdf:7" {
		t.Errorf("expected second citation policy.pdf:7, got %s", answer.Citations[1].Ref())
	}
}

func TestSynthesizePromptContainsContext(t *testing.T) {
	var captured string
	backend := &capturingLLM{response: "ok", captured: &captured}
	syn := NewSynthesizer(backend, 20, "")

	chunks := []domain.ScoredChunk{
		scored("report.pdf", "4", "Revenue grew twelve percent.", 0.9),
	}
	if _, err := syn.Synthesize(context.Background(), "how did revenue change?", chunks); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(captured, "Revenue grew twelve percent.") {
		t.Error("expected prompt to contain chunk text")
	}
	if !strings.Contains(captured, "[report.pdf:4]") {
		t.Error("expected prompt to label chunks with their citation")
	}
	if !strings.Contains(captured, "how did revenue change?") {
		t.Error("expected prompt to contain the question")
	}
}

type capturingLLM struct {
	response string
	captured *string
}

func (c *capturingLLM) Generate(_ context.Context, prompt string) (string, error) {
	*c.captured = prompt
	return c.response, nil
}

func (c *capturingLLM) ModelName() string { return "capturing" }

func TestSynthesizeFallbackOnBackendFailure(t *testing.T) {
	backend := &llm.MockLLM{Err: errors.New("api timeout")}
	syn := NewSynthesizer(backend, 20, "Generation is temporarily unavailable.")

	chunks := []domain.ScoredChunk{
		scored("handbook.pdf", "2", "Remote work requires manager approval.", 0.95),
	}

	answer, err := syn.Synthesize(context.Background(), "can I work remotely?", chunks)
	if err != nil {
		t.Fatalf("backend failure must not surface as an error, got %v", err)
	}
	if answer.Text != "Generation is temporarily unavailable." {
		t.Errorf("expected fallback text, got %q", answer.Text)
	}
	if len(answer.Citations) != 1 {
		t.Errorf("expected citations preserved with fallback, got %d", len(answer.Citations))
	}
}

func TestSynthesizeNoContext(t *testing.T) {
	backend := &llm.MockLLM{Err: errors.New("must not be called")}
	syn := NewSynthesizer(backend, 20, "")

	answer, err := syn.Synthesize(context.Background(), "anything", nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != NoContextText {
		t.Errorf("expected no-context answer, got %q", answer.Text)
	}
	if len(answer.Citations) != 0 {
		t.Errorf("expected no citations, got %d", len(answer.Citations))
	}
}

func TestSynthesizeRouting(t *testing.T) {
	hosted := &llm.MockLLM{Response: "hosted answer"}
	local := &llm.MockLLM{Response: "local answer"}
	router := llm.NewKeywordRouter([]string{"要約"}, hosted, local)

	syn := NewSynthesizer(local, 20, "", WithRouter(router))
	chunks := []domain.ScoredChunk{
		scored("doc.pdf", "1", "content", 0.9),
	}

	answer, err := syn.Synthesize(context.Background(), "この文書を要約してください", chunks)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "hosted answer" {
		t.Errorf("expected hosted backend for keyword question, got %q", answer.Text)
	}

	answer, err = syn.Synthesize(context.Background(), "what is on page 3?", chunks)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "local answer" {
		t.Errorf("expected local backend for plain question, got %q", answer.Text)
	}
}

func TestCleanupAnswer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLines int
		want     string
	}{
		{
			name:     "dedupes bullet variants and unifies markers",
			input:    "- Foo\n- Foo\n\n• Bar",
			maxLines: 20,
			want:     "- Foo\n- Bar",
		},
		{
			name:     "drops blank lines and trims",
			input:    "  line one  \n\n\n line two ",
			maxLines: 20,
			want:     "line one\nline two",
		},
		{
			name:     "case insensitive dedupe",
			input:    "Answer\nanswer\nANSWER",
			maxLines: 20,
			want:     "Answer",
		},
		{
			name:     "japanese bullet unified",
			input:    "・項目一\n・項目二",
			maxLines: 20,
			want:     "-項目一\n-項目二",
		},
		{
			name:     "caps line count",
			input:    "a\nb\nc\nd",
			maxLines: 2,
			want:     "a\nb",
		},
		{
			name:     "empty input",
			input:    "",
			maxLines: 20,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanupAnswer(tt.input, tt.maxLines)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
