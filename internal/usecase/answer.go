package usecase

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"docchat/internal/domain"
	"docchat/internal/logger"
	"docchat/internal/port"
)

//go:embed templates/answer_prompt.txt
var answerPromptText string

var answerPrompt = template.Must(template.New("answer").Parse(answerPromptText))

// NoContextText is returned when retrieval produced nothing to ground
// an answer on. No generation call is made in that case.
const NoContextText = "I could not find anything about that in the indexed documents."

// Synthesizer turns retrieved chunks and a question into a final
// answer with citations. Generation failures degrade to a fallback
// answer instead of failing the request.
type Synthesizer struct {
	llm      port.LLM
	router   port.RoutingPolicy
	maxLines int
	fallback string
}

type SynthesizerOption func(*Synthesizer)

// WithRouter makes backend selection per-question instead of fixed.
func WithRouter(r port.RoutingPolicy) SynthesizerOption {
	return func(s *Synthesizer) { s.router = r }
}

func NewSynthesizer(llm port.LLM, maxLines int, fallback string, opts ...SynthesizerOption) *Synthesizer {
	if maxLines <= 0 {
		maxLines = 20
	}
	if fallback == "" {
		fallback = "The answer could not be generated right now. Please try again later."
	}
	s := &Synthesizer{
		llm:      llm,
		maxLines: maxLines,
		fallback: fallback,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type promptData struct {
	Context  string
	Question string
}

// Synthesize generates an answer grounded in the given chunks. The
// returned citations follow the chunks' ranking order, deduplicated by
// source and page.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []domain.ScoredChunk) (*domain.Answer, error) {
	if len(chunks) == 0 {
		return &domain.Answer{Text: NoContextText}, nil
	}

	prompt, err := s.buildPrompt(question, chunks)
	if err != nil {
		return nil, err
	}

	backend := s.llm
	if s.router != nil {
		backend = s.router.Select(question)
	}
	logger.Debug("generating with model %s", backend.ModelName())

	raw, err := backend.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("generation failed, returning fallback: %v", err)
		return &domain.Answer{
			Text:      s.fallback,
			Citations: Citations(chunks),
		}, nil
	}

	return &domain.Answer{
		Text:      CleanupAnswer(raw, s.maxLines),
		Citations: Citations(chunks),
	}, nil
}

func (s *Synthesizer) buildPrompt(question string, chunks []domain.ScoredChunk) (string, error) {
	var ctx strings.Builder
	for i, sc := range chunks {
		if i > 0 {
			ctx.WriteString("\n\n")
		}
		cite := domain.Citation{Source: sc.Chunk.Source, Page: sc.Chunk.Page}
		fmt.Fprintf(&ctx, "[%s] %s", cite.Ref(), sc.Chunk.Text)
	}

	var buf strings.Builder
	err := answerPrompt.Execute(&buf, promptData{
		Context:  ctx.String(),
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// Citations extracts the citation list from ranked chunks, keeping the
// first appearance of each (source, page) pair.
func Citations(chunks []domain.ScoredChunk) []domain.Citation {
	seen := make(map[domain.Citation]struct{})
	var cites []domain.Citation
	for _, sc := range chunks {
		c := domain.Citation{Source: sc.Chunk.Source, Page: sc.Chunk.Page}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cites = append(cites, c)
	}
	return cites
}

// CleanupAnswer normalizes generated text: trims lines, drops blanks
// and near-duplicate lines, unifies bullet markers, and caps the line
// count. Near-duplicates are lines equal after stripping leading bullet
// characters and lowercasing.
func CleanupAnswer(text string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = 20
	}

	seen := make(map[string]struct{})
	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		norm := strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "・-• ")))
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}

		line = strings.ReplaceAll(line, "•", "-")
		line = strings.ReplaceAll(line, "・", "-")
		cleaned = append(cleaned, line)

		if len(cleaned) == maxLines {
			break
		}
	}
	return strings.Join(cleaned, "\n")
}
