package llm

import "context"

// MockLLM returns a fixed response or error. Used in tests and as the
// "mock" generation provider.
type MockLLM struct {
	Response string
	Err      error
}

func (m *MockLLM) Generate(_ context.Context, prompt string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockLLM) ModelName() string {
	return "mock"
}
