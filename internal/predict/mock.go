package predict

import (
	"context"
	"fmt"
)

// MockPredictor returns canned model output. Used by tests of packages that consume a Predictor.
type MockPredictor struct {
	// Outputs maps prompt to raw model output.
	Outputs map[string]string

	// Default is returned for prompts missing from Outputs.
	Default string

	// Err, when set, is returned by every Suggest call.
	Err error

	Calls       []string
	Initialized bool
	Closed      bool
}

// NewMockPredictor creates a mock that answers every prompt with output.
func NewMockPredictor(output string) *MockPredictor {
	return &MockPredictor{Default: output, Outputs: map[string]string{}}
}

func (m *MockPredictor) Initialize(ctx context.Context) error {
	m.Initialized = true
	return nil
}

func (m *MockPredictor) Suggest(ctx context.Context, prompt string) (string, error) {
	if !m.Initialized {
		return "", fmt.Errorf("provider not initialized: call Initialize() first")
	}
	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if out, ok := m.Outputs[prompt]; ok {
		return out, nil
	}
	return m.Default, nil
}

func (m *MockPredictor) Close() error {
	m.Closed = true
	return nil
}
