package port

import "context"

// LLM represents a generation backend. Concrete backends (hosted API,
// local model) are selected by configuration at startup, never by code
// branching inside the core.
type LLM interface {
	// Generate generates text based on the prompt. Cancelling the
	// context stops in-flight requests and pending retries.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// RoutingPolicy picks a generation backend for a question. Keyword-based
// routing is an explicit named policy injected into the synthesizer.
type RoutingPolicy interface {
	Select(question string) LLM
}
